package version

import "github.com/fatih/color"

// Version information for the weave CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// ABI identifies the in-process scheduler contract this build exposes.
// weave has no wire format and no persisted state (spec.md §6): a
// *fiber.Scheduler, its fibers, and every Counter it hands out live and
// die inside one process, so there is nothing for two different weave
// binaries to negotiate over a socket. ABI exists only so something
// linking fiber.Scheduler directly — an embedder, not the CLI — can
// assert the package version it built against, the same way Version
// fingerprints the CLI binary.
const ABI = "weave-fiber-v1"
