// Package pkg provides the libraries behind gcbmanimation.
//
// # Overview
//
// gcbmanimation turns the yearly rasters written by a GCBM simulation into
// videos. Each video frame is split into four quadrants: the year's
// disturbances, a colorized map of one indicator, a graph of that indicator
// over the whole simulation with the current year highlighted, and a legend.
//
// # Architecture
//
// The typical data flow:
//
//	study_area.json + yearly GeoTIFFs
//	         ↓
//	    [studyarea] / [layer] (discover and read rasters)
//	         ↓
//	    [collection] (crop, convert units, mosaic, colorize per year)
//	         ↓
//	    [indicator] + [provider] + [chart] (map frames and graph frames)
//	         ↓
//	    [layout] (compose quadrants)
//	         ↓
//	    [animator] → [video] (encode one video per indicator)
//
// # Quick Start
//
//	ws, _ := workspace.New(workspace.DefaultRoot())
//	defer ws.Close()
//
//	disturbances, _ := studyarea.New(ws).Configure(ctx, "tiled/study_area.json")
//	npp, _ := indicator.New(ws, indicator.Config{
//	    Name:     "NPP",
//	    Pattern:  "spatial/NPP_*.tiff",
//	    Provider: provider.NewSpatial(ws, "spatial/NPP_*.tiff", units.TcPerHa),
//	})
//
//	box := layer.NewBoundingBox(layer.New(ws, "tiled/bounding_box.tiff", 0))
//	a, _ := animator.New(ws, disturbances, []*indicator.Indicator{npp}, "animations")
//	videos, _ := a.Render(ctx, box, 0, 0)
//
// Most callers use [pipeline] instead, which does the discovery above from a
// study area, a results directory and an indicator list.
//
// # Main Packages
//
// ## Rasters
//
// [raster] - In-memory grids with a GeoTIFF reader and writer,
// nearest-neighbour resampling, and the geographic, UTM, Lambert and Albers
// systems GCBM tiles are delivered in.
//
// [layer] - A raster file for one year, optionally interpreted as symbolic
// codes. Unit conversion, reclassification, cropping, blending and rendering
// all write new layers into the workspace.
//
// [units] - tC/ha, tC, ktC and MtC, per area or absolute.
//
// ## Coloring
//
// [palette] - Named seaborn-style palettes. [color] - Equal-bin, quantile and
// custom colorizers producing a [legend].
//
// ## Frames
//
// [frame] - A PNG on disk with its year and pixel scale. [layout] arranges
// four frames with titles and a scale bar. [chart] draws indicator graphs.
//
// ## Results
//
// [provider] - Yearly indicator totals from the compiled SQLite results
// database or by summing spatial output.
//
// ## Orchestration
//
// [animator] renders and encodes each indicator. [pipeline] wires a whole run
// together for the CLI. [workspace] owns the scratch files, and
// [observability] reports progress.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/collection/...         # Specific package
//
// Tests write their fixtures into t.TempDir(); encoder tests skip when ffmpeg
// is not installed.
package pkg
