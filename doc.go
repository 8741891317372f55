/*
Package recolor implements palette-based image recoloring: it extracts a
small palette of colors such that every pixel of an image is a convex
combination of the palette, decomposes the image into per-pixel weights
over that palette, and rebuilds a recolored image by substituting a new
palette of the same size while reusing the weights.

The package provides a command line interface supporting palette
extraction and recoloring. To check the supported commands type:

	$ recolor --help

In case you wish to integrate the API in a self constructed environment
here is a simple example:

	package main

	import (
		"fmt"

		recolor "github.com/aprilwade/image-palette-recoloring"
	)

	func main() {
		palette, err := recolor.ComputePalette(img, 4, 10, recolor.DefaultErrorBound)
		if err != nil {
			fmt.Printf("Error extracting the palette: %s", err.Error())
			return
		}

		weights, err := recolor.NewImageWeights(img)
		if err != nil {
			fmt.Printf("Error computing the image weights: %s", err.Error())
			return
		}

		decomposed, err := recolor.NewDecomposedImage(weights, palette)
		if err != nil {
			fmt.Printf("Error decomposing the image: %s", err.Error())
			return
		}

		recolored, err := decomposed.Reconstruct(newPalette)
		// ...
	}
*/
package recolor
