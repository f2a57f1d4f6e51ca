package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/jwebster45206/case-engine/pkg/actor"
	"github.com/jwebster45206/case-engine/pkg/callbacks"
	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/dialogue"
	"github.com/jwebster45206/case-engine/pkg/evidence"
	"github.com/jwebster45206/case-engine/pkg/items"
	"github.com/jwebster45206/case-engine/pkg/narrative"
	"gopkg.in/yaml.v3"
)

//go:embed data
var embedded embed.FS

const programCacheSize = 32

var ErrNotFound = errors.New("content not found")

// Scene is everything authored for one playable scene.
type Scene struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title,omitempty"`
	Case  string `yaml:"case"`
	// Story names the compiled program under stories/ that plays ScriptSources.
	Story         string            `yaml:"story,omitempty"`
	ScriptSources []string          `yaml:"scriptSources,omitempty"`
	Aliases       map[string]string `yaml:"aliases,omitempty"`

	Player     actor.PlayerSpec                `yaml:"player"`
	Characters []actor.Character               `yaml:"characters"`
	Clues      []evidence.Clue                 `yaml:"clues,omitempty"`
	Art        evidence.ArtTable               `yaml:"art,omitempty"`
	Items      []items.Config                  `yaml:"items,omitempty"`
	Callbacks  map[string]callbacks.Definition `yaml:"callbacks,omitempty"`
	Dialogues  map[string]dialogue.Graph       `yaml:"dialogues,omitempty"`
}

// CharacterNames maps character ids to display names.
func (s *Scene) CharacterNames() map[string]string {
	out := make(map[string]string, len(s.Characters))
	for _, c := range s.Characters {
		out[c.ID] = c.Name
	}
	return out
}

// Library is the loaded game content. Scenes and cases are decoded up front;
// story programs are compiled on first use and cached.
type Library struct {
	fsys     fs.FS
	scenes   map[string]*Scene
	cases    map[string]*cases.Config
	programs *lru.Cache[string, *narrative.Program]
	logger   *slog.Logger
}

// Load reads the content embedded in the binary.
func Load(logger *slog.Logger) (*Library, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded content: %w", err)
	}
	return LoadFS(sub, logger)
}

// LoadFS reads scenes/*.yaml, cases/*.yaml and indexes stories/*.json from fsys.
func LoadFS(fsys fs.FS, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, *narrative.Program](programCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}
	lib := &Library{
		fsys:     fsys,
		scenes:   make(map[string]*Scene),
		cases:    make(map[string]*cases.Config),
		programs: cache,
		logger:   logger,
	}

	err = eachFile(fsys, "cases", ".yaml", func(name string, data []byte) error {
		var c cases.Config
		if err := DecodeStrict(bytes.NewReader(data), &c); err != nil {
			return fmt.Errorf("case %s: %w", name, err)
		}
		if _, dup := lib.cases[c.ID]; dup {
			return fmt.Errorf("case %s: duplicate id %q", name, c.ID)
		}
		lib.cases[c.ID] = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachFile(fsys, "scenes", ".yaml", func(name string, data []byte) error {
		var s Scene
		if err := DecodeStrict(bytes.NewReader(data), &s); err != nil {
			return fmt.Errorf("scene %s: %w", name, err)
		}
		if _, dup := lib.scenes[s.ID]; dup {
			return fmt.Errorf("scene %s: duplicate id %q", name, s.ID)
		}
		lib.scenes[s.ID] = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Content loaded", "scenes", len(lib.scenes), "cases", len(lib.cases))
	return lib, nil
}

// DecodeStrict decodes one YAML document, rejecting unknown fields.
func DecodeStrict(r io.Reader, out any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed strict YAML decoding: %w", err)
	}
	return nil
}

func eachFile(fsys fs.FS, dir, ext string, fn func(name string, data []byte) error) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		if err := fn(e.Name(), data); err != nil {
			return err
		}
	}
	return nil
}

// Scene returns a scene by id.
func (l *Library) Scene(id string) (*Scene, error) {
	s, ok := l.scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: scene %q", ErrNotFound, id)
	}
	return s, nil
}

// SceneForCase returns the scene that plays a case.
func (l *Library) SceneForCase(caseID string) (*Scene, error) {
	for _, id := range l.SceneIDs() {
		if l.scenes[id].Case == caseID {
			return l.scenes[id], nil
		}
	}
	return nil, fmt.Errorf("%w: no scene plays case %q", ErrNotFound, caseID)
}

// Case returns a case by id.
func (l *Library) Case(id string) (*cases.Config, error) {
	c, ok := l.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: case %q", ErrNotFound, id)
	}
	return c, nil
}

func (l *Library) SceneIDs() []string {
	return slices.Sorted(maps.Keys(l.scenes))
}

func (l *Library) CaseIDs() []string {
	return slices.Sorted(maps.Keys(l.cases))
}

// Program compiles stories/<name>.json, once per cache lifetime.
func (l *Library) Program(name string) (*narrative.Program, error) {
	if p, ok := l.programs.Get(name); ok {
		return p, nil
	}
	data, err := fs.ReadFile(l.fsys, path.Join("stories", name+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: story %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read story %s: %w", name, err)
	}
	p, err := narrative.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("story %s: %w", name, err)
	}
	l.programs.Add(name, p)
	l.logger.Debug("Story compiled", "story", name, "paths", len(p.Paths()))
	return p, nil
}

// Programs returns the program source for a scene's script engine.
func (l *Library) Programs(s *Scene) dialogue.ProgramSource {
	return &sceneStories{lib: l, scene: s}
}

type sceneStories struct {
	lib   *Library
	scene *Scene
}

func (s *sceneStories) Program(sourceID string) (*narrative.Program, bool) {
	if s.scene.Story == "" || !slices.Contains(s.scene.ScriptSources, sourceID) {
		return nil, false
	}
	p, err := s.lib.Program(s.scene.Story)
	if err != nil {
		s.lib.logger.Error("Failed to load story", "story", s.scene.Story, "source", sourceID, "error", err)
		return nil, false
	}
	return p, true
}
