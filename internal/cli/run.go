package cli

import "context"

// Run executes the command line and returns the process exit code:
// 0 on a completed run, 1 on any failure.
func Run(ctx context.Context, args []string, version string) int {
	cmd := NewRootCmd(version)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
