// Package domain holds the pure geodata transforms for glacier mass-balance
// post-processing: raster/vector conversion, reprojection, smoothing,
// snow/ice classification, satellite resampling, and snowline detection.
//
// # Data Sources
//
// Mass-balance predictions come from the upstream model as one value per
// glacier grid cell, paired with the glacier directory's gridded NetCDF file
// (planar model projection, typically a local transverse Mercator). Satellite
// snow classifications come from Sentinel-2 derived GeoTIFF scenes, one band
// of integer class labels per scene.
//
// # Surface Classes
//
// Class labels are a closed integer set shared with the satellite
// classification products:
//
//	1 = snow
//	2 = firn
//	3 = ice
//	4 = debris
//	5 = cloud / unusable
//
// Cloud pixels are excluded from every snow/ice coverage denominator unless
// [FillCloudsNearest] has already relabeled them.
//
// # Missing Values
//
// NaN is the single missing-value sentinel for float columns and grid cells.
// Cells outside the glacier mask are NaN in every derived field. Transforms
// never turn a missing value into a present one or vice versa; smoothing in
// particular restores the original validity mask after filtering.
//
// # Coordinate Reference Systems
//
// Grids arrive in the glacier model's planar projection (proj4 metadata on
// the file), are converted once to geographic WGS84 coordinates, and planar
// map products are produced in the Swiss LV95 system (EPSG:2056). The
// planar-to-geographic conversion collapses the transformed 2-D mesh back to
// 1-D axes using the first row and column, which assumes the transform is
// separable over the glacier's extent. That holds to well below cell size
// for the small extents handled here; supporting general non-separable
// projections is out of scope.
//
// # Hydrological Years
//
// Scenes and predictions are bucketed by hydrological year, the 12-month
// period September through August, because glacier mass balance resets
// around the annual minimum in late summer. A date in September 2021 belongs
// to hydrological year 2022. See [HydroDate].
package domain
