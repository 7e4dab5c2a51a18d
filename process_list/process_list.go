// Package process_list enumerates running processes for the attach picker.
package process_list

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"yclass/process"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// List returns every process visible to the caller, ordered by PID.
// Processes that exit while being listed are skipped.
func List(ctx context.Context) ([]process.ProcessInfo, error) {
	procs, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	results := make([]process.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		info, err := describe(ctx, p)
		if err != nil {
			continue
		}
		results = append(results, info)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})

	return results, nil
}

// Get describes a single process
func Get(ctx context.Context, pid process.ProcessID) (process.ProcessInfo, error) {
	p, err := gopsprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return process.ProcessInfo{}, fmt.Errorf("process %d: %w", pid, process.ErrProcessNotFound)
	}
	return describe(ctx, p)
}

// describe collects what can be read about p. Only the name is required;
// the executable and user are often hidden for other users' processes.
func describe(ctx context.Context, p *gopsprocess.Process) (process.ProcessInfo, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return process.ProcessInfo{}, err
	}

	info := process.ProcessInfo{
		PID:  process.ProcessID(p.Pid),
		Name: name,
	}

	if ppid, err := p.PpidWithContext(ctx); err == nil {
		info.PPID = process.ProcessID(ppid)
	}
	if exe, err := p.ExeWithContext(ctx); err == nil {
		info.Exe = exe
	}
	if user, err := p.UsernameWithContext(ctx); err == nil {
		info.User = user
	}

	return info, nil
}

// Filter keeps the processes whose name contains filter, ignoring case.
// An empty filter keeps everything.
func Filter(list []process.ProcessInfo, filter string) []process.ProcessInfo {
	if filter == "" {
		return list
	}

	needle := strings.ToLower(filter)
	var out []process.ProcessInfo
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}
