/*
Package svgkit converts SVG documents into raster images, icons and favicon packages.

A source is rasterized onto a surface of the requested size, laid over an
optional background color and filtered with CSS like filter effects. The
surface is then encoded into PNG, JPEG, WebP, GIF, BMP, AVIF or a multi size
ICO container. When a format cannot be produced the encoder falls back to a
close substitute: GIF to PNG and AVIF to WebP. The returned EncodedImage
always reports the format actually produced.

The package provides a command line interface and an HTTP server.
To check the supported commands type:

	$ svgkit --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"
		"os"

		"github.com/esimov/svgkit"
	)

	func main() {
		src, err := svgkit.DecodeSource(os.Stdin)
		if err != nil {
			fmt.Printf("Error loading the image: %s", err.Error())
			return
		}

		x := svgkit.NewExporter()
		res, err := x.Export(context.Background(), svgkit.ExportOptions{
			Source: src,
			Format: svgkit.WebP,
			Width:  512,
		})
		if err != nil {
			fmt.Printf("Error exporting the image: %s", err.Error())
			return
		}
		os.WriteFile(res.Filename("icon"), res.Data, 0644)
	}
*/
package svgkit
