package reconciler

// NeedsRestart reports whether applying the newly rendered main
// configuration requires a disruptive restart. The policy is deliberately
// coarse: any byte-level difference against the previously applied content
// is restart-worthy, and only the main configuration participates. An
// absent previous file reads as empty content, so first application always
// restarts.
func NeedsRestart(rendered, previous string) bool {
	return rendered != previous
}
