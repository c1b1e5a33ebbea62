// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sensorsim

// rgb is a linear colour in sample units, indexed by frame.Channel.
type rgb [3]uint16

// ChartColumns and ChartRows give the patch layout of the test chart.
const (
	ChartColumns = 6
	ChartRows    = 4
)

// chartPatches are 8-bit sRGB-ish reference colours, row-major.
var chartPatches = [ChartRows * ChartColumns][3]uint8{
	{115, 82, 68}, {194, 150, 130}, {98, 122, 157}, {87, 108, 67}, {133, 128, 177}, {103, 189, 170},
	{214, 126, 44}, {80, 91, 166}, {193, 90, 99}, {94, 60, 108}, {157, 188, 64}, {224, 163, 46},
	{56, 61, 150}, {70, 148, 73}, {175, 54, 60}, {231, 199, 31}, {187, 86, 149}, {8, 133, 161},
	{243, 243, 242}, {200, 200, 200}, {160, 160, 160}, {122, 122, 121}, {85, 85, 85}, {52, 52, 52},
}

// ChartColor returns the colour of the patch at column, row, scaled to
// samples no larger than maxV.
func ChartColor(column, row int, maxV uint16) [3]uint16 {
	p := chartPatches[row*ChartColumns+column]
	var c [3]uint16
	for i, v := range p {
		c[i] = uint16((uint32(v)*uint32(maxV) + 127) / 255)
	}
	return c
}

// renderChart fills a width x height scene with the patch grid.
func renderChart(width, height int, maxV uint16) []rgb {
	scene := make([]rgb, width*height)
	for y := range height {
		row := y * ChartRows / height
		for x := range width {
			scene[y*width+x] = ChartColor(x*ChartColumns/width, row, maxV)
		}
	}
	return scene
}
