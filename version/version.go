package version

// Those vars are initialized during the build process via -ldflags
var (
	version = ""
	commit  = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}
