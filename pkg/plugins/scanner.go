package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/observability"
)

// DefaultPattern is the file suffix of Go plugin modules
const DefaultPattern = ".so"

// ModuleFile is a candidate module file found under the module root
type ModuleFile struct {
	Path    string    `yaml:"path"`
	ModTime time.Time `yaml:"mod_time"`
}

// Scanner discovers modules under a root directory
type Scanner struct {
	pattern string
	opener  Opener
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewScanner creates a scanner matching files ending in pattern
func NewScanner(pattern string, opener Opener, log logrus.FieldLogger, metrics *observability.Metrics) *Scanner {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if opener == nil {
		opener = GoPluginOpener{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Scanner{
		pattern: pattern,
		opener:  opener,
		log:     log,
		metrics: metrics,
	}
}

// ModuleFiles lists candidate files under root in lexical walk order
func (s *Scanner) ModuleFiles(root string) ([]ModuleFile, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}

	var files []ModuleFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.log.WithField("path", path).Warnf("Failed to read module directory: %v", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), s.pattern) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.log.WithField("path", path).Warnf("Failed to stat module file: %v", err)
			return nil
		}

		files = append(files, ModuleFile{Path: path, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk module root %s: %w", root, err)
	}

	return files, nil
}

// Scan returns the modules under root. The sequence rescans the
// directory every time it is iterated.
func (s *Scanner) Scan(root string) (iter.Seq[*Module], error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}

	return func(yield func(*Module) bool) {
		files, err := s.ModuleFiles(root)
		if err != nil {
			s.log.WithField("path", root).Errorf("Failed to scan module root: %v", err)
			return
		}

		for _, m := range s.Load(files) {
			if !yield(m) {
				return
			}
		}
	}, nil
}

// Load opens each file and returns the modules that loaded, in file order.
// Files that fail are logged and skipped, as are duplicate module names.
func (s *Scanner) Load(files []ModuleFile) []*Module {
	seen := make(map[string]string, len(files))
	modules := make([]*Module, 0, len(files))

	for _, f := range files {
		desc, err := s.opener.Open(f.Path)
		if err != nil {
			s.report(f.Path, err)
			continue
		}

		if prev, dup := seen[desc.Name]; dup {
			s.log.WithFields(logrus.Fields{
				"module": desc.Name,
				"path":   f.Path,
			}).Warnf("Module already loaded from %s, skipping", prev)
			s.metrics.RecordModule(observability.ResultFailed)
			continue
		}
		seen[desc.Name] = f.Path

		s.log.WithFields(logrus.Fields{
			"module": desc.Name,
			"path":   f.Path,
		}).Debug("Loaded module")
		s.metrics.RecordModule(observability.ResultLoaded)

		modules = append(modules, NewModule(f.Path, desc))
	}

	return modules
}

func (s *Scanner) report(path string, err error) {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Path: path, Kind: KindOther, Err: err}
	}

	log := s.log.WithField("path", path)

	switch loadErr.Kind {
	case KindNotModule:
		log.Debugf("Skipping file that is not a plugin module: %v", loadErr.Err)
		s.metrics.RecordModule(observability.ResultNotModule)
	case KindBadFormat:
		log.Debugf("Skipping file with bad module format: %v", loadErr.Err)
		s.metrics.RecordModule(observability.ResultBadFormat)
	case KindMissingDependency:
		for _, dep := range loadErr.Dependencies {
			log.WithField("dependency", dep).Error("Module cannot be loaded, dependency is missing")
		}
		s.metrics.RecordModule(observability.ResultMissingDependency)
	default:
		log.Errorf("Failed to load module: %v", loadErr)
		s.metrics.RecordModule(observability.ResultFailed)
	}
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModuleRootMissing, root)
		}
		return fmt.Errorf("stat module root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrModuleRootMissing, root)
	}
	return nil
}
