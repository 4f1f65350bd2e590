// Package watermark stamps a repeating, wave-shaped text watermark onto PDF
// documents and raster images.
//
// Every character of the watermark text is offset vertically by a sine of its
// horizontal position, and the resulting "snake" of text is repeated on a
// square grid that covers the page or image. PDF pages receive the watermark
// as a vector overlay with each tile rotated by the configured angle; PNG and
// JPEG images receive axis-aligned tiles composited onto the pixels and are
// always written back as PNG.
package watermark
