package engine

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dpinedaj/loom/internal/errors"
)

// Well-known file names of a loom project.
const (
	ProjectFileName   = "loom_project.yml"
	ProfilesFileName  = "profiles.yml"
	PackagesFileName  = "packages.yml"
	SelectorsFileName = "selectors.yml"
)

// envPrefix is the prefix for environment overrides of project settings,
// e.g. LOOM_TARGET_PATH overrides target_path.
const envPrefix = "LOOM_"

// Params are the caller-supplied inputs to runtime configuration derivation.
type Params struct {
	ProjectDir  string
	ProfilesDir string
	Profile     string
	Target      string
	Threads     int
	Vars        string // canonical JSON object
}

// Credentials is one output of a profile: the connection settings of a target.
type Credentials struct {
	Type     string            `koanf:"type"`
	Schema   string            `koanf:"schema"`
	Database string            `koanf:"database"`
	Threads  int               `koanf:"threads"`
	Settings map[string]string `koanf:"settings"`
}

// PackageSpec names one external dependency of a project.
type PackageSpec struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SelectorDef is a named selection saved in selectors.yml.
type SelectorDef struct {
	Name    string   `yaml:"name"`
	Select  []string `yaml:"select"`
	Exclude []string `yaml:"exclude"`
}

type projectFile struct {
	Name                string   `koanf:"name"`
	Version             string   `koanf:"version"`
	Profile             string   `koanf:"profile"`
	ModelPaths          []string `koanf:"model_paths"`
	SeedPaths           []string `koanf:"seed_paths"`
	SnapshotPaths       []string `koanf:"snapshot_paths"`
	TestPaths           []string `koanf:"test_paths"`
	MacroPaths          []string `koanf:"macro_paths"`
	TargetPath          string   `koanf:"target_path"`
	PackagesInstallPath string   `koanf:"packages_install_path"`
	CleanTargets        []string `koanf:"clean_targets"`
}

type profileDef struct {
	Target  string                 `koanf:"target"`
	Outputs map[string]Credentials `koanf:"outputs"`
}

// RuntimeConfig is the fully resolved configuration of one run: the project
// definition merged with the selected profile output.
type RuntimeConfig struct {
	ProjectName string
	Version     string
	ProfileName string
	TargetName  string

	ProjectDir  string
	ProfilesDir string

	ModelPaths          []string
	SeedPaths           []string
	SnapshotPaths       []string
	TestPaths           []string
	MacroPaths          []string
	TargetPath          string
	PackagesInstallPath string
	CleanTargets        []string

	Credentials Credentials
	Threads     int
	Vars        map[string]interface{}

	Packages  []PackageSpec
	Selectors map[string]SelectorDef
}

// LoadRuntimeConfig derives a runtime configuration from the given params.
// It validates the project and profile definitions and fails with a
// configuration error when either is missing or inconsistent.
func LoadRuntimeConfig(inv *Invocation, p Params) (*RuntimeConfig, error) {
	projectDir := p.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}

	pf, err := loadProjectFile(filepath.Join(projectDir, ProjectFileName))
	if err != nil {
		return nil, err
	}

	profilesDir, err := resolveProfilesDir(p.ProfilesDir)
	if err != nil {
		return nil, err
	}

	profileName := p.Profile
	if profileName == "" {
		profileName = pf.Profile
	}
	if profileName == "" {
		return nil, errors.Configf("project %q does not name a profile and none was supplied", pf.Name)
	}

	def, err := loadProfile(filepath.Join(profilesDir, ProfilesFileName), profileName)
	if err != nil {
		return nil, err
	}

	targetName := p.Target
	if targetName == "" {
		targetName = def.Target
	}
	creds, ok := def.Outputs[targetName]
	if !ok {
		return nil, errors.Configf("target %q not found in profile %q", targetName, profileName)
	}

	threads := p.Threads
	if threads == 0 {
		threads = creds.Threads
	}
	if threads == 0 {
		threads = DefaultThreads
	}

	vars := map[string]interface{}{}
	if p.Vars != "" {
		if err := json.Unmarshal([]byte(p.Vars), &vars); err != nil {
			return nil, errors.Validationf("vars is not a JSON object: %v", err)
		}
	}

	rc := &RuntimeConfig{
		ProjectName:         pf.Name,
		Version:             pf.Version,
		ProfileName:         profileName,
		TargetName:          targetName,
		ProjectDir:          projectDir,
		ProfilesDir:         profilesDir,
		ModelPaths:          pf.ModelPaths,
		SeedPaths:           pf.SeedPaths,
		SnapshotPaths:       pf.SnapshotPaths,
		TestPaths:           pf.TestPaths,
		MacroPaths:          pf.MacroPaths,
		TargetPath:          pf.TargetPath,
		PackagesInstallPath: pf.PackagesInstallPath,
		CleanTargets:        pf.CleanTargets,
		Credentials:         creds,
		Threads:             threads,
		Vars:                vars,
	}
	applyProjectDefaults(rc)

	if err := loadPackages(rc); err != nil {
		return nil, err
	}
	if err := loadSelectors(rc); err != nil {
		return nil, err
	}

	inv.Logger.Debug("runtime configuration resolved",
		zap.String("project", rc.ProjectName),
		zap.String("profile", rc.ProfileName),
		zap.String("target", rc.TargetName))

	return rc, nil
}

func loadProjectFile(path string) (*projectFile, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Configf("project file not found: %s", path)
		}
		return nil, errors.WrapConfig(err, "failed to read project file")
	}

	// Flat env overrides, e.g. LOOM_TARGET_PATH => target_path.
	_ = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var pf projectFile
	if err := k.Unmarshal("", &pf); err != nil {
		return nil, errors.WrapConfig(err, "failed to parse project file")
	}
	if pf.Name == "" {
		return nil, errors.Configf("project file %s does not set a project name", path)
	}
	return &pf, nil
}

func loadProfile(path, name string) (*profileDef, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Configf("profiles file not found: %s", path)
		}
		return nil, errors.WrapConfig(err, "failed to read profiles file")
	}

	if !k.Exists(name) {
		return nil, errors.Configf("profile %q not found in %s", name, path)
	}

	var def profileDef
	if err := k.Unmarshal(name, &def); err != nil {
		return nil, errors.WrapConfig(err, "failed to parse profile "+name)
	}
	if len(def.Outputs) == 0 {
		return nil, errors.Configf("profile %q defines no outputs", name)
	}
	return &def, nil
}

func resolveProfilesDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if dir := os.Getenv("LOOM_PROFILES_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".loom"), nil
}

func applyProjectDefaults(rc *RuntimeConfig) {
	if len(rc.ModelPaths) == 0 {
		rc.ModelPaths = []string{"models"}
	}
	if len(rc.SeedPaths) == 0 {
		rc.SeedPaths = []string{"seeds"}
	}
	if len(rc.SnapshotPaths) == 0 {
		rc.SnapshotPaths = []string{"snapshots"}
	}
	if len(rc.TestPaths) == 0 {
		rc.TestPaths = []string{"tests"}
	}
	if len(rc.MacroPaths) == 0 {
		rc.MacroPaths = []string{"macros"}
	}
	if rc.TargetPath == "" {
		rc.TargetPath = "target"
	}
	if rc.PackagesInstallPath == "" {
		rc.PackagesInstallPath = "loom_packages"
	}
	if len(rc.CleanTargets) == 0 {
		rc.CleanTargets = []string{rc.TargetPath, rc.PackagesInstallPath}
	}
}

func loadPackages(rc *RuntimeConfig) error {
	path := filepath.Join(rc.ProjectDir, PackagesFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapConfig(err, "failed to read packages file")
	}

	var doc struct {
		Packages []PackageSpec `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.WrapConfig(err, "failed to parse packages file")
	}
	rc.Packages = doc.Packages
	return nil
}

func loadSelectors(rc *RuntimeConfig) error {
	path := filepath.Join(rc.ProjectDir, SelectorsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapConfig(err, "failed to read selectors file")
	}

	var doc struct {
		Selectors []SelectorDef `yaml:"selectors"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.WrapConfig(err, "failed to parse selectors file")
	}

	rc.Selectors = make(map[string]SelectorDef, len(doc.Selectors))
	for _, def := range doc.Selectors {
		if def.Name == "" {
			return errors.Config("selectors file contains a selector without a name")
		}
		rc.Selectors[def.Name] = def
	}
	return nil
}

// TargetDir returns the absolute-ish path of the project's target directory,
// where compiled artifacts are written.
func (rc *RuntimeConfig) TargetDir() string {
	return filepath.Join(rc.ProjectDir, rc.TargetPath)
}

// PackagesDir returns the path external dependencies are installed under.
func (rc *RuntimeConfig) PackagesDir() string {
	return filepath.Join(rc.ProjectDir, rc.PackagesInstallPath)
}

// LoadDependencies verifies the project's external dependencies are installed.
// The deps command must have run first; a missing package is a configuration
// error.
func (rc *RuntimeConfig) LoadDependencies() error {
	for _, pkg := range rc.Packages {
		dir := filepath.Join(rc.PackagesDir(), pkg.Name)
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				return errors.Configf("package %q is not installed; run the deps command first", pkg.Name)
			}
			return errors.Wrap(err, "failed to check package "+pkg.Name)
		}
	}
	return nil
}
