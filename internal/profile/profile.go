// Package profile generates the configuration files ("profiles") each
// service reads at startup, from a deployment configuration and its
// runtime settings.
package profile

import (
	"os"
	"strings"
)

// Profile is one generated configuration file.
type Profile struct {
	Name    string
	Service string

	// Version is the artifact version the base template was taken from.
	Version  string
	Contents string

	// OutputFile is the absolute path of the file inside the service's
	// container.
	OutputFile string

	// RequiredFiles are local files the profile refers to. They are not
	// deduplicated.
	RequiredFiles []string

	// DecryptedFiles maps staged names to decrypted secret file contents.
	DecryptedFiles map[string][]byte

	Env        map[string]string
	Executable bool
}

// Mode returns the file mode the profile is written with.
func (p *Profile) Mode() os.FileMode {
	if p.Executable {
		return 0o755
	}
	return 0o644
}

// Comment prefixes for the generated-file banner.
const (
	YAMLComment = "# "
	JSComment   = "// "
	NoBanner    = ""
)

var bannerLines = []string{
	"WARNING",
	"This file was autogenerated, and _will_ be overwritten by hal.",
	"Any edits you make here _will_ be lost.",
}

// Banner returns the autogenerated-file warning with each line commented by
// prefix. An empty prefix yields no banner.
func Banner(prefix string) string {
	if prefix == NoBanner {
		return ""
	}
	var b strings.Builder
	for _, line := range bannerLines {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
