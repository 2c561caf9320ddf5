// Package version provides build and version information for AvatarLink.
package version

// Version is the current release version of AvatarLink.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/AvatarLink/internal/version.Version=x.y.z"
var Version = "1.0.0"
