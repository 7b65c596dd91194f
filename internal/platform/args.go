package platform

import (
	"fmt"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
)

// Overrides are user supplied adjustments applied after the policy.
type Overrides struct {
	CC     string
	CXX    string
	GNArgs string // "k=v;k=v"
}

// systemLibraries are the third-party libraries Skia can take from the system.
var systemLibraries = []string{"libjpeg_turbo", "libpng", "libwebp", "zlib", "icu", "harfbuzz", "expat"}

// GNArgs composes the complete gn argument set for cfg.
func GNArgs(cfg *config.Build, p Policy, o Overrides) (*gn.Args, error) {
	f := cfg.Features
	a := gn.NewArgs()

	a.SetBool("is_official_build", !cfg.Debug)
	a.SetBool("is_debug", cfg.Debug)
	a.Set("target_cpu", cfg.Target.GNCPU())

	a.SetBool("skia_enable_ganesh", f.GPU())
	a.SetBool("skia_use_gl", f.Contains(features.GL))
	a.SetBool("skia_use_egl", f.Contains(features.EGL))
	a.SetBool("skia_use_x11", f.Contains(features.X11))
	a.SetBool("skia_use_vulkan", f.Contains(features.Vulkan))
	if f.Contains(features.Vulkan) {
		a.SetBool("skia_enable_spirv_validation", false)
	}
	a.SetBool("skia_use_metal", f.Contains(features.Metal))
	a.SetBool("skia_use_direct3d", f.Contains(features.D3D))

	a.SetBool("skia_enable_pdf", f.Contains(features.PDF))
	a.SetBool("skia_enable_svg", f.Contains(features.SVG))
	a.SetBool("skia_use_expat", f.Contains(features.SVG))

	textLayout := f.Contains(features.TextLayout)
	a.SetBool("skia_use_icu", textLayout)
	a.SetBool("skia_use_harfbuzz", textLayout)
	a.SetBool("skia_enable_skshaper", textLayout)
	a.SetBool("skia_enable_skparagraph", textLayout)
	a.SetBool("skia_enable_skunicode", textLayout)

	a.SetBool("skia_use_libwebp_encode", f.Contains(features.WebPEncode))
	a.SetBool("skia_use_libwebp_decode", f.Contains(features.WebPDecode))
	a.SetBool("skia_use_freetype", f.Contains(features.FreeType))
	a.SetBool("skia_use_freetype_woff2", f.Contains(features.FreeTypeWOFF2))
	a.SetBool("skia_use_xps", false)
	a.SetBool("skia_use_dng_sdk", false)

	for _, lib := range systemLibraries {
		a.SetBool("skia_use_system_"+lib, cfg.UseSystemLibraries)
	}
	a.SetBool("skia_use_system_freetype2", cfg.UseSystemLibraries && !f.Contains(features.EmbedFreeType))

	if err := p.GNArgs(cfg, a); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	flags, err := p.CompilerFlags(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	a.AppendList("extra_cflags", flags...)

	if o.CC != "" {
		a.Set("cc", o.CC)
	}
	if o.CXX != "" {
		a.Set("cxx", o.CXX)
	}
	if err := a.ParseOverrides(o.GNArgs); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	return a, nil
}
