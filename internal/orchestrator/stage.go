package orchestrator

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/inventory"
	"github.com/opmodel/hal/internal/profile"
	"github.com/opmodel/hal/internal/settings"
)

// maxSlugLength keeps staged secret names well under the 253 character
// object name limit.
const maxSlugLength = 40

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// StagedUnit is one directory of configuration packaged as a secret.
type StagedUnit struct {
	Source cluster.ConfigSource
	Secret cluster.Secret
}

// Files returns the unit's files keyed "<secret id>/<file name>".
func (u StagedUnit) Files() map[string][]byte {
	out := make(map[string][]byte, len(u.Secret.Data))
	for name, data := range u.Secret.Data {
		out[u.Source.ID+"/"+name] = data
	}
	return out
}

// FileReader reads a local file.
type FileReader func(name string) ([]byte, error)

type stagedDir struct {
	files map[string][]byte
	env   map[string]string
}

// Stage packages a service's profiles, their required local files and
// their decrypted secret files into one unit per output directory. Units
// are returned sorted by mount path.
func Stage(deployment string, svc settings.ServiceSettings, profiles []*profile.Profile, readFile FileReader) ([]StagedUnit, error) {
	dirs := make(map[string]*stagedDir)
	dirFor := func(dir string) *stagedDir {
		d, ok := dirs[dir]
		if !ok {
			d = &stagedDir{files: map[string][]byte{}, env: map[string]string{}}
			dirs[dir] = d
		}
		return d
	}
	add := func(file string, contents []byte) error {
		d := dirFor(path.Dir(file))
		name := path.Base(file)
		if prev, ok := d.files[name]; ok && string(prev) != string(contents) {
			return fmt.Errorf("staging %s for %s: conflicting contents for %s", svc.Name, deployment, file)
		}
		d.files[name] = contents
		return nil
	}

	required := make(map[string]bool)
	for _, p := range profiles {
		if err := add(p.OutputFile, []byte(p.Contents)); err != nil {
			return nil, err
		}
		d := dirFor(path.Dir(p.OutputFile))
		for k, v := range p.Env {
			d.env[k] = v
		}
		for name, data := range p.DecryptedFiles {
			if err := add(path.Join(path.Dir(p.OutputFile), name), data); err != nil {
				return nil, err
			}
		}
		for _, f := range p.RequiredFiles {
			required[f] = true
		}
	}

	requiredPaths := make([]string, 0, len(required))
	for f := range required {
		requiredPaths = append(requiredPaths, f)
	}
	sort.Strings(requiredPaths)
	for _, f := range requiredPaths {
		data, err := readFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading required file %s of %s: %w", f, svc.Name, err)
		}
		if err := add(f, data); err != nil {
			return nil, err
		}
	}

	mounts := make([]string, 0, len(dirs))
	for dir := range dirs {
		mounts = append(mounts, dir)
	}
	sort.Strings(mounts)

	labels := cluster.Merge(cluster.ServiceLabels(deployment, svc.Name),
		map[string]string{cluster.LabelComponent: cluster.ComponentConfig})

	units := make([]StagedUnit, 0, len(mounts))
	for _, dir := range mounts {
		d := dirs[dir]
		id := StagedName(svc.Name, dir, d.files)
		units = append(units, StagedUnit{
			Source: cluster.ConfigSource{ID: id, MountPath: dir, Env: d.env},
			Secret: cluster.Secret{
				Name:      id,
				Namespace: svc.Location,
				Labels:    labels,
				Data:      d.files,
			},
		})
	}
	return units, nil
}

// StagedName returns "<service>-<dirslug>-<sha256[:10]>" for a directory's
// files.
func StagedName(service, dir string, files map[string][]byte) string {
	digest := strings.TrimPrefix(inventory.ComputeConfigDigest(files), "sha256:")
	return fmt.Sprintf("%s-%s-%s", service, dirSlug(dir), digest[:10])
}

func dirSlug(dir string) string {
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(dir), "-"), "-")
	if slug == "" {
		slug = "root"
	}
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[len(slug)-maxSlugLength:], "-")
	}
	return slug
}
