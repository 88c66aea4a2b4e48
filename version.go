package lightup

// Version and GitCommit are set with -ldflags "-X" at release time.
var (
	Version   = "v0.3.0"
	GitCommit = ""
)

// UserAgent is sent on every request that does not set its own User-Agent.
func UserAgent() string {
	if GitCommit == "" {
		return "lightup/" + Version
	}
	return "lightup/" + Version + " (" + GitCommit + ")"
}
