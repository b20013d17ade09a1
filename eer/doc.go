// Package eer decodes EER (electron-event representation) movies
// produced by Thermo Fisher Falcon detectors.
//
// An EER file is a TIFF-like container with one page per detector
// frame. Each frame is a bit-packed stream of variable-length skip
// codes describing where electrons arrived; decoding rasterizes those
// events into a dense per-pixel count image. Frames are typically
// summed, every Nth frame, to produce a usable exposure.
//
// Decoding:
//
//	d, err := eer.Open("movie.eer")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	img, err := d.Sum(10) // decode every 10th frame and sum
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Header inspection without decoding pixel data:
//
//	info := d.Header()
//	n := d.FrameCount()
package eer
