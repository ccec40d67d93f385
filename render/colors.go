package render

import (
	"github.com/gdamore/tcell/v2"
)

// Arena palette
var (
	RgbBackground = tcell.NewRGBColor(26, 27, 38)    // Tokyo Night background
	RgbObstacle   = tcell.NewRGBColor(110, 110, 120) // Stone gray

	RgbPrey         = tcell.NewRGBColor(120, 200, 255) // Light blue
	RgbPreyAvoiding = tcell.NewRGBColor(255, 220, 80)  // Yellow while steering around an obstacle
	RgbHunter       = tcell.NewRGBColor(255, 80, 80)   // Red
	RgbHunterIdle   = tcell.NewRGBColor(150, 60, 60)   // Dim red while wandering

	RgbLineForward = tcell.NewRGBColor(0, 200, 0)     // Green heading line
	RgbLineRight   = tcell.NewRGBColor(100, 150, 255) // Blue right-vector line
	RgbLineTarget  = tcell.NewRGBColor(180, 60, 60)   // Hunter to target
	RgbPredicted   = tcell.NewRGBColor(255, 165, 0)   // Orange predicted pursuit point

	RgbStatusText  = tcell.NewRGBColor(255, 255, 255)
	RgbStatusBg    = tcell.NewRGBColor(40, 42, 58)
	RgbStatusBoost = tcell.NewRGBColor(255, 165, 0)
	RgbStatusPause = tcell.NewRGBColor(200, 80, 200)
)
