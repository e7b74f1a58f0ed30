package version

// Version represents the Major.Minor.Patch version tag
// from GIT, supplied by the Makefile - else 'dev' as a
// default
var Version string = "dev"

// Name is the binary name used in version output and the user agent of
// diagnostic commands
const Name = "tapo-service"
