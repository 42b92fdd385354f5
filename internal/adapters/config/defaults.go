package config

import (
	"go.trai.ch/sling/internal/adapters/transform"
	"go.trai.ch/sling/internal/core/domain"
)

// DefaultEntryName names the entry declared by a plain string.
const DefaultEntryName = "main"

const (
	defaultOutputDir      = "dist"
	defaultPublicPath     = "/"
	defaultAssetFilename  = "assets/[name].[hash:8][ext]"
	defaultCommonName     = "common"
	defaultPort           = 3000
	defaultStatic         = "public"
	defaultTemplate       = "public/index.html"
	supportedVersion      = "1"
	prodFilename          = "js/[name].[contenthash:8].js"
	prodChunkFilename     = "js/[name].[contenthash:8].chunk.js"
	devFilename           = "js/[name].js"
	devChunkFilename      = "js/[name].chunk.js"
	imagesAssetFilename   = "images/[name].[hash:8][ext]"
	fontsAssetFilename    = "fonts/[name].[hash:8][ext]"
	defaultMinChunks      = 1
	defaultVendorGroup    = "vendor"
	defaultReactVendorGrp = "react-vendor"
)

var (
	defaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".json"}
	defaultMainFields = []string{"browser", "module", "main"}
	defaultAliases    = []AliasDTO{{From: "@", To: "src"}}
)

// defaultRules mirrors a typical webpack setup: TypeScript outside
// node_modules, plain JavaScript everywhere, stylesheets, images that may be
// inlined, fonts that are always emitted, and JSON.
func defaultRules() []RuleDTO {
	return []RuleDTO{
		{Test: `\.tsx?$`, Exclude: `node_modules`, Use: []TransformDTO{{Name: transform.ESBuildName}}},
		{Test: `\.[mc]?jsx?$`, Use: []TransformDTO{{Name: transform.ESBuildName}}},
		{Test: `(?i)\.css$`, Use: []TransformDTO{{Name: transform.CSSName}}},
		{
			Test: `(?i)\.(png|jpe?g|gif|svg|webp)$`,
			Use: []TransformDTO{{
				Name:    transform.AssetName,
				Options: map[string]any{"filename": imagesAssetFilename},
			}},
		},
		{
			Test: `(?i)\.(woff2?|eot|ttf|otf)$`,
			Use: []TransformDTO{{
				Name:    transform.AssetName,
				Options: map[string]any{"resource": true, "filename": fontsAssetFilename},
			}},
		},
		{Test: `\.json$`, Use: []TransformDTO{{Name: transform.JSONName}}},
	}
}

func defaultVendors() []VendorDTO {
	return []VendorDTO{
		{Name: defaultReactVendorGrp, Test: `node_modules/(react|react-dom)/`, MinChunks: defaultMinChunks},
		{Name: defaultVendorGroup, Test: `node_modules/`, MinChunks: defaultMinChunks},
	}
}

// modeDefaults holds the settings that differ between modes.
type modeDefaults struct {
	filename      string
	chunkFilename string
	minify        bool
	sourceMap     domain.SourceMapMode
}

func defaultsFor(mode domain.Mode) modeDefaults {
	if mode == domain.ModeDevelopment {
		return modeDefaults{
			filename:      devFilename,
			chunkFilename: devChunkFilename,
			minify:        false,
			sourceMap:     domain.SourceMapEval,
		}
	}
	return modeDefaults{
		filename:      prodFilename,
		chunkFilename: prodChunkFilename,
		minify:        true,
		sourceMap:     domain.SourceMapNone,
	}
}
