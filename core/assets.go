package core

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// ErrAssetLoad marks a texture or model that could not be resolved. It is
// never fatal: the scene substitutes a flat-coloured material.
var ErrAssetLoad = errors.New("asset load failure")

// Texture is a resolved drawable image.
type Texture struct {
	Path          string
	Width, Height int
}

// AssetLoader resolves a texture path to a drawable image.
type AssetLoader interface {
	LoadTexture(path string) (Texture, error)
}

// FileAssetLoader resolves textures beneath Root. Images are checked by
// decoding their header; binary model files (.glb, .gltf) only need to
// exist.
type FileAssetLoader struct {
	Root string
}

// LoadTexture implements AssetLoader.
func (l FileAssetLoader) LoadTexture(path string) (Texture, error) {
	if path == "" {
		return Texture{}, fmt.Errorf("%w: empty path", ErrAssetLoad)
	}
	full := path
	if l.Root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.Root, filepath.FromSlash(path))
	}

	f, err := os.Open(full)
	if err != nil {
		return Texture{}, fmt.Errorf("%w: %s: %v", ErrAssetLoad, path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(full)) {
	case ".glb", ".gltf":
		return Texture{Path: path}, nil
	}

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Texture{}, fmt.Errorf("%w: %s: %v", ErrAssetLoad, path, err)
	}
	return Texture{Path: path, Width: cfg.Width, Height: cfg.Height}, nil
}

// NoAssets is a loader that resolves nothing; every material falls back to
// its flat colour. Headless runs without an asset tree use it.
type NoAssets struct{}

// LoadTexture implements AssetLoader.
func (NoAssets) LoadTexture(path string) (Texture, error) {
	return Texture{}, fmt.Errorf("%w: %s: no asset root configured", ErrAssetLoad, path)
}

// Blending describes how a material composites.
type Blending int

const (
	BlendOpaque Blending = iota
	BlendAlpha
)

// Material describes how a node is drawn. Rasterisation belongs to the
// render target; the scene only decides what to draw.
type Material struct {
	Color       uint32
	Map         *Texture
	BumpMap     *Texture
	BumpScale   float64
	Emissive    uint32
	Intensity   float64
	Opacity     float64
	Blending    Blending
	DepthWrite  bool
	DoubleSided bool
	// Fallback reports that a texture failed to load and Color is used
	// instead.
	Fallback bool
}
