package build

// Version is the release of grantlink, overridden at link time with
// -ldflags "-X github.com/storacha/grantlink/pkg/build.Version=..."
var Version = "v0.0.0-dev"
