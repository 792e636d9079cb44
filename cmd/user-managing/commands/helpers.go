package commands

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/nepremicnine/user-managing/internal/log"
)

// The deploy subcommands share a single parent command per kingpin app.
var deployCmds = map[*kingpin.Application]*kingpin.CmdClause{}

func getOrCreateDeployCmd(app *kingpin.Application) *kingpin.CmdClause {
	cmd, ok := deployCmds[app]
	if !ok {
		cmd = app.Command("deploy", "Kubernetes deployment related actions.")
		deployCmds[app] = cmd
	}

	return cmd
}

// discoverManifests walks a path discovering the YAML manifest files to lint,
// filtered by the optional exclude and include regexes (exclude has
// preference).
func discoverManifests(logger log.Logger, exclude, include *regexp.Regexp, path string) ([]string, error) {
	logger = logger.WithValues(log.Kv{"svc": "ManifestDiscovery"})

	paths := []string{}
	err := filepath.Walk(path, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		// Non YAML files don't need to be handled.
		extension := strings.ToLower(filepath.Ext(path))
		if extension != ".yml" && extension != ".yaml" {
			return nil
		}

		// Filter by exclude or include (exclude has preference).
		if exclude != nil && exclude.MatchString(path) {
			logger.Debugf("Excluding path due to exclude filter %s", path)
			return nil
		}
		if include != nil && !include.MatchString(path) {
			logger.Debugf("Excluding path due to include filter %s", path)
			return nil
		}

		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}
