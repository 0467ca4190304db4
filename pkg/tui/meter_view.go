package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"

	"peakmeter/pkg/render"
)

var (
	inactiveBackground = tcell.NewHexColor(0x4d4d4d)
	activeBackground   = tcell.NewHexColor(0x000000)
	holdColor          = tcell.NewHexColor(0xffffff)

	lowLevel  = mustHex("#2ecc40")
	midLevel  = mustHex("#ffdc00")
	highLevel = mustHex("#ff4136")
)

const (
	barWidth = 3
	barGap   = 1
	// midPoint is where the bar gradient reaches its middle colour.
	midPoint = 0.7
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// MeterView draws one vertical bar per channel with a peak-hold marker.
type MeterView struct {
	*tview.Box
	renderer *render.Renderer
}

func NewMeterView(renderer *render.Renderer) *MeterView {
	v := &MeterView{Box: tview.NewBox(), renderer: renderer}
	v.SetBorder(true).SetTitle(" peaks ")
	return v
}

func (v *MeterView) Draw(screen tcell.Screen) {
	v.Box.DrawForSubclass(screen, v)
	x, y, width, height := v.GetInnerRect()
	if width <= 0 || height < 2 {
		return
	}

	// Bottom row holds channel numbers.
	rows := height - 1
	for i, ch := range v.renderer.Channels() {
		left := x + i*(barWidth+barGap)
		if left+barWidth > x+width {
			break
		}
		v.drawChannel(screen, left, y, rows, ch)
		label := fmt.Sprintf("%*d", barWidth, i+1)
		for j, r := range label {
			screen.SetContent(left+j, y+rows, r, nil, tcell.StyleDefault)
		}
	}
}

func (v *MeterView) drawChannel(screen tcell.Screen, left, top, rows int, ch render.ChannelVisualState) {
	bg := inactiveBackground
	if ch.Active {
		bg = activeBackground
	}
	filled := scaleRows(ch.HeightPx, rows)
	holdRow := -1
	if ch.Active {
		holdRow = int(ch.PeakHoldTopPx * float64(rows) / (render.ScaleHeight + 1))
	}

	for row := 0; row < rows; row++ {
		style := tcell.StyleDefault.Background(bg)
		r := ' '
		fromBottom := rows - row
		if fromBottom <= filled {
			style = style.Background(levelColor(float64(fromBottom) / float64(rows)))
		}
		if row == holdRow {
			style = style.Foreground(holdColor)
			r = '▀'
		}
		for col := 0; col < barWidth; col++ {
			screen.SetContent(left+col, top+row, r, nil, style)
		}
	}
}

// scaleRows converts a height on the display scale to a number of rows.
func scaleRows(heightPx float64, rows int) int {
	if heightPx <= 0 {
		return 0
	}
	n := int(math.Round(heightPx * float64(rows) / render.ScaleHeight))
	if n == 0 {
		n = 1
	}
	return min(n, rows)
}

func levelColor(frac float64) tcell.Color {
	var c colorful.Color
	if frac < midPoint {
		c = lowLevel.BlendHcl(midLevel, frac/midPoint)
	} else {
		c = midLevel.BlendHcl(highLevel, (frac-midPoint)/(1-midPoint))
	}
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
