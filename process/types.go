package process

// ProcessID represents a unique identifier for a process
type ProcessID uint32

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID  ProcessID // Process ID
	PPID ProcessID // Parent Process ID
	Name string    // Display name
	Exe  string    // Path to the executable, empty when not accessible
	User string    // User running the process, empty when not accessible
}
