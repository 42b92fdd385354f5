package transform

import (
	"context"
	"encoding/base64"
	"mime"
	"strings"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
)

// AssetName is the rule name of the asset transform.
const AssetName = "asset"

// DefaultMaxInlineSize is the size below which assets are inlined as data URLs.
const DefaultMaxInlineSize = 10 * 1024

// Asset emits the module as a separate file and exports its public URL. Small
// files are inlined as data URLs unless the resource option is set.
//
// Options:
//
//	maxInlineSize  bytes, 10 KiB by default
//	resource       always emit a file
//	filename       overrides the asset filename template
type Asset struct {
	hasher ports.Hasher
}

// NewAsset creates the asset transform.
func NewAsset(hasher ports.Hasher) *Asset {
	return &Asset{hasher: hasher}
}

// Name implements ports.Transformer.
func (a *Asset) Name() string { return AssetName }

// Version implements ports.Transformer.
func (a *Asset) Version() string { return "1" }

// Kind implements ports.Transformer.
func (a *Asset) Kind() ports.TransformKind { return ports.TransformAsset }

// Transform implements ports.Transformer.
func (a *Asset) Transform(_ context.Context, in *ports.TransformInput) (*ports.TransformOutput, error) {
	resource, err := boolOption(AssetName, in.Options, "resource", false)
	if err != nil {
		return nil, err
	}
	maxInline, err := intOption(AssetName, in.Options, "maxInlineSize", DefaultMaxInlineSize)
	if err != nil {
		return nil, err
	}
	template, err := stringOption(AssetName, in.Options, "filename", in.AssetFilename)
	if err != nil {
		return nil, err
	}

	name, ext := splitName(in.ID)
	ref := &domain.AssetRef{Name: in.ID.Key(in.Root)}

	var url string
	if !resource && len(in.Source) < maxInline {
		ref.Inline = true
		url = "data:" + mimeType(ext) + ";base64," + base64.StdEncoding.EncodeToString(in.Source)
	} else {
		ref.Path = domain.ExpandTemplate(template, name, ext, a.hasher.HashBytes(in.Source))
		ref.Content = in.Source
		url = publicURL(in.PublicPath, ref.Path)
	}

	return &ports.TransformOutput{
		Code:   []byte("module.exports = " + jsString(url) + ";\n"),
		Loader: "js",
		Asset:  ref,
	}, nil
}

func mimeType(ext string) string {
	if t := mime.TypeByExtension(ext); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	return "application/octet-stream"
}

// publicURL joins the public path and an output relative path.
func publicURL(publicPath, rel string) string {
	if publicPath == "" {
		publicPath = "/"
	}
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return publicPath + rel
}
