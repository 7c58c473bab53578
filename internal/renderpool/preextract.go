package renderpool

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/FjamZoo/clothing-tool/internal/dds"
	"github.com/FjamZoo/clothing-tool/internal/logger"
	"github.com/FjamZoo/clothing-tool/internal/rsc7"
	"github.com/FjamZoo/clothing-tool/internal/ytd"
)

// variantRe captures the filename prefix up to the drawable id, so
// "..._diff_015_a_uni.ytd" groups with its _b_, _c_, ... siblings.
var variantRe = regexp.MustCompile(`(?i)^(.+_diff_\d+_)[a-z]_`)

// VariantYTDs finds all sibling variant .ytd files for the same drawable.
// The model's default material may reference any variant's texture name,
// not just the base one, so all of them need extracting.
func VariantYTDs(ytdPath string) []string {
	dir := filepath.Dir(ytdPath)
	name := filepath.Base(ytdPath)

	m := variantRe.FindStringSubmatch(name)
	if m == nil {
		return []string{ytdPath}
	}
	prefix := strings.ToLower(m[1])

	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{ytdPath}
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		if strings.HasPrefix(lower, prefix) && strings.HasSuffix(lower, ".ytd") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	if len(out) == 0 {
		return []string{ytdPath}
	}
	return out
}

// ExtractTextures writes every texture of the .ytd at ytdPath, and of
// all its variant siblings, as DDS files under outDir. Duplicate texture
// names across variants are written once. Returns the written paths.
func ExtractTextures(ytdPath, outDir string, log logger.Logger) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	variants := VariantYTDs(ytdPath)
	log.Debug("extracting textures", "variants", len(variants))

	var paths []string
	seen := make(map[string]struct{})

	for _, variant := range variants {
		res, err := rsc7.ParseFile(variant, log)
		if err != nil {
			log.Debug("skipping variant", "file", filepath.Base(variant), "err", err)
			continue
		}
		textures, err := ytd.Parse(res.Virtual, res.Physical, log)
		if err != nil {
			log.Debug("skipping variant", "file", filepath.Base(variant), "err", err)
			continue
		}

		for i := range textures {
			tex := &textures[i]
			if len(tex.RawData) == 0 {
				continue
			}
			name := sanitizeName(tex.Name)
			if name == "" {
				name = fmt.Sprintf("texture_%d", len(paths))
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			blob, err := dds.Build(tex)
			if err != nil {
				log.Debug("skipping texture", "name", tex.Name, "err", err)
				continue
			}
			path := filepath.Join(outDir, name+".dds")
			if err := os.WriteFile(path, blob, 0o644); err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	}

	return paths, nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '_'
		}
		return r
	}, name)
}

// extracted is the outcome of pre-extracting one batch item.
type extracted struct {
	item         BatchItem
	info         TextureInfo
	texturePaths []string
	placeholder  bool
	err          error
}

// preExtract performs the single RSC7/YTD parse for one item, covering
// both placeholder detection and texture extraction. It is a pure
// function of its inputs and runs in the bounded phase-1 pool.
func preExtract(item BatchItem, scratchDir string, log logger.Logger) extracted {
	out := extracted{item: item}

	res, err := rsc7.ParseFile(item.TexturePath, log)
	if err != nil {
		out.err = fmt.Errorf("container parse: %w", err)
		return out
	}
	textures, err := ytd.Parse(res.Virtual, res.Physical, log)
	if err != nil {
		out.err = fmt.Errorf("dictionary decode: %w", err)
		return out
	}

	diffuse := ytd.SelectDiffuse(textures)
	if diffuse != nil {
		out.info = TextureInfo{
			Name:   diffuse.Name,
			Width:  int(diffuse.Width),
			Height: int(diffuse.Height),
			Format: diffuse.Format.Name,
		}
	}

	// Degenerate placeholder assets never reach a worker.
	if ytd.IsPlaceholder(diffuse) {
		out.placeholder = true
		return out
	}

	texDir := filepath.Join(scratchDir, "dds", item.Key)
	paths, err := ExtractTextures(item.TexturePath, texDir, log)
	if err != nil {
		out.err = fmt.Errorf("texture extraction: %w", err)
		return out
	}
	out.texturePaths = paths
	return out
}
