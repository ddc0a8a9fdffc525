package strategy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"stratguard/internal/config"
	"stratguard/internal/logger"
)

const (
	baseStrategyClass = "IStrategy"
	manifestSuffix    = ".strategy.yaml"
)

var classPattern = regexp.MustCompile(`(?m)^class\s+([A-Za-z_]\w*)\s*\(\s*([A-Za-z_][\w.]*)[^)]*\)\s*:`)

// DirDiscoverer finds strategies in cfg.StrategyPath. Python sources contribute every
// class deriving (directly or through another found class) from IStrategy; manifest
// files named *.strategy.yaml declare one strategy each.
type DirDiscoverer struct{}

func NewDirDiscoverer() *DirDiscoverer { return &DirDiscoverer{} }

type manifest struct {
	Name      string            `yaml:"name"`
	Timeframe string            `yaml:"timeframe"`
	Meta      map[string]string `yaml:"meta"`
}

type classDecl struct {
	name     string
	base     string
	location string
}

func (d *DirDiscoverer) SearchAll(ctx context.Context, cfg *config.Config, enumFailed, recursive bool) ([]Descriptor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	root := strings.TrimSpace(cfg.StrategyPath)
	if root == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("strategy path %s does not exist", root)
			return nil, nil
		}
		return nil, err
	}

	var (
		classes []classDecl
		out     []Descriptor
	)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if enumFailed {
				out = append(out, Descriptor{Location: path, LoadError: walkErr.Error()})
			}
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path == root {
				return nil
			}
			name := entry.Name()
			if !recursive || strings.HasPrefix(name, ".") || name == "__pycache__" {
				return fs.SkipDir
			}
			return nil
		}
		switch {
		case strings.HasSuffix(path, manifestSuffix):
			desc := loadManifest(path)
			if desc.Failed() && !enumFailed {
				logger.Debugf("skipping strategy manifest %s: %s", path, desc.LoadError)
				return nil
			}
			out = append(out, desc)
		case strings.HasSuffix(path, ".py"):
			decls, err := scanPython(path)
			if err != nil {
				if enumFailed {
					out = append(out, Descriptor{Location: path, LoadError: err.Error()})
				}
				return nil
			}
			classes = append(classes, decls...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(strategyClasses(classes), out...), nil
}

func loadManifest(path string) Descriptor {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{Location: path, LoadError: err.Error()}
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Descriptor{Location: path, LoadError: fmt.Sprintf("invalid manifest: %v", err)}
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return Descriptor{Location: path, LoadError: "manifest has no name"}
	}
	meta := make(map[string]string, len(m.Meta)+1)
	for k, v := range m.Meta {
		meta[k] = v
	}
	if m.Timeframe != "" {
		meta["timeframe"] = m.Timeframe
	}
	return Descriptor{Name: name, Location: path, Meta: meta}
}

func scanPython(path string) ([]classDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := classPattern.FindAllStringSubmatch(string(data), -1)
	decls := make([]classDecl, 0, len(matches))
	for _, m := range matches {
		base := m[2]
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[idx+1:]
		}
		decls = append(decls, classDecl{name: m[1], base: base, location: path})
	}
	return decls, nil
}

// strategyClasses keeps the classes whose ancestry reaches IStrategy, in scan order.
// The first declaration of a name wins.
func strategyClasses(decls []classDecl) []Descriptor {
	byName := make(map[string]classDecl, len(decls))
	for _, c := range decls {
		if _, dup := byName[c.name]; !dup {
			byName[c.name] = c
		}
	}
	memo := make(map[string]bool, len(decls))
	var isStrategy func(name string, depth int) bool
	isStrategy = func(name string, depth int) bool {
		if v, ok := memo[name]; ok {
			return v
		}
		c, ok := byName[name]
		if !ok || depth > len(decls) {
			return false
		}
		res := c.base == baseStrategyClass || isStrategy(c.base, depth+1)
		memo[name] = res
		return res
	}

	var out []Descriptor
	emitted := make(map[string]bool)
	for _, c := range decls {
		if emitted[c.name] || !isStrategy(c.name, 0) {
			continue
		}
		emitted[c.name] = true
		out = append(out, Descriptor{
			Name:     c.name,
			Location: c.location,
			Meta:     map[string]string{"base": c.base},
		})
	}
	return out
}
