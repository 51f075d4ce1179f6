// Package misc keeps program identification, values are set at build time
// with -ldflags "-X nestcss/misc.version=... -X nestcss/misc.gitHash=...".
package misc

const appName = "nestcss"

var (
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
