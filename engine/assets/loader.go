package assets

import (
	"path/filepath"
	"strings"
)

type AssetType uint8

const (
	ASSET_TYPE_NONE AssetType = iota
	ASSET_TYPE_IMAGE
	ASSET_TYPE_SHADER_SOURCE
	ASSET_TYPE_SHADER_BINARY
	ASSET_TYPE_BITMAP_FONT
)

func (t AssetType) String() string {
	switch t {
	case ASSET_TYPE_IMAGE:
		return "image"
	case ASSET_TYPE_SHADER_SOURCE:
		return "shader source"
	case ASSET_TYPE_SHADER_BINARY:
		return "shader binary"
	case ASSET_TYPE_BITMAP_FONT:
		return "bitmap font"
	default:
		return "none"
	}
}

// determineAssetType maps a file extension to the loader able to read it.
func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return ASSET_TYPE_IMAGE
	case ".vert", ".frag":
		return ASSET_TYPE_SHADER_SOURCE
	case ".spv":
		return ASSET_TYPE_SHADER_BINARY
	case ".fnt":
		return ASSET_TYPE_BITMAP_FONT
	default:
		return ASSET_TYPE_NONE
	}
}
