// Package asset locates and decodes the files a renderer reads from its
// content directory.
//
// Layout:
//
//	<root>/Shaders/<Name>.<stage>.wgsl   shader stages, stage is "vert" or "frag"
//	<root>/Images/<file>                 textures (png, jpeg, gif, bmp, webp, tiff)
//
// The default root is "Content".
package asset
