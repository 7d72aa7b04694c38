package shaders

import (
	_ "embed"
)

//go:embed path_anim.wgsl
var PathAnimWGSL string
