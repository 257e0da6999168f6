package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/sprite"
)

// DefaultRoot is the content directory used when none is configured.
const DefaultRoot = "Content"

const (
	shaderDir = "Shaders"
	imageDir  = "Images"
	shaderExt = ".wgsl"
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

// String returns the file name suffix of the stage.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// EntryPoint is the entry function every shader stage file must define.
const EntryPoint = "main"

// ErrUnknownStage is returned for shader names without a stage suffix.
var ErrUnknownStage = errors.New("asset: shader name has no known stage suffix")

// ParseStage extracts the stage from a shader name such as "Sprite.vert".
func ParseStage(name string) (Stage, error) {
	ext := strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(name, shaderExt)), ".")
	switch ext {
	case "vert":
		return StageVertex, nil
	case "frag":
		return StageFragment, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// Shader is a shader stage read from the content directory.
type Shader struct {
	Name       string
	Stage      Stage
	EntryPoint string
	Source     string
}

// Content resolves asset paths under a root directory.
type Content struct {
	root string
	fsys fs.FS
}

// NewContent returns a Content rooted at dir on the host file system.
// An empty dir selects DefaultRoot.
func NewContent(dir string) Content {
	if dir == "" {
		dir = DefaultRoot
	}
	return Content{root: dir, fsys: os.DirFS(dir)}
}

// NewContentFS returns a Content that reads shaders from fsys.
// Image paths are still resolved against dir on the host file system.
func NewContentFS(dir string, fsys fs.FS) Content {
	if dir == "" {
		dir = DefaultRoot
	}
	return Content{root: dir, fsys: fsys}
}

// Root returns the content directory.
func (c Content) Root() string { return c.root }

// ImagePath resolves an image file name. Absolute paths are returned as is.
func (c Content) ImagePath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.root, imageDir, file)
}

// ShaderPath returns the host path of a shader stage file.
func (c Content) ShaderPath(name string) string {
	return filepath.Join(c.root, shaderDir, name+shaderExt)
}

// Shader reads the named stage, for example "Sprite.vert".
// A missing file yields an error that matches fs.ErrNotExist.
func (c Content) Shader(name string) (Shader, error) {
	stage, err := ParseStage(name)
	if err != nil {
		return Shader{}, err
	}
	if c.fsys == nil {
		return Shader{}, fmt.Errorf("read shader %s: %w", name, fs.ErrNotExist)
	}
	data, err := fs.ReadFile(c.fsys, shaderDir+"/"+name+shaderExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Shader{}, fmt.Errorf("read shader %s: %w", name, err)
		}
		return Shader{}, fmt.Errorf("%w: read shader %s: %w", sprite.ErrResourceLoad, name, err)
	}
	return Shader{
		Name:       name,
		Stage:      stage,
		EntryPoint: EntryPoint,
		Source:     string(data),
	}, nil
}
