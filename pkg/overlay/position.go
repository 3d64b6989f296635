package overlay

import (
	"fmt"

	"github.com/entrhq/formless/pkg/dom"
)

// Position is where an affordance goes, in document coordinates.
type Position struct {
	Top     float64
	Left    float64
	Visible bool
}

// Place anchors the button inside the bottom-right corner of box, which is
// given in viewport coordinates. The button is hidden when the box has no
// area or is more than FarMargin above or below the viewport.
func Place(box dom.Rect, vp dom.Viewport, o Options) Position {
	if box.Empty() {
		return Position{}
	}
	if box.Bottom() < -o.FarMargin || box.Y > vp.Height+o.FarMargin {
		return Position{}
	}
	return Position{
		Top:     box.Bottom() + vp.ScrollY - o.ButtonSize - o.Margin,
		Left:    box.Right() + vp.ScrollX - o.ButtonSize - o.Margin,
		Visible: true,
	}
}

// buttonStyle renders the inline style for an affordance at p.
func buttonStyle(p Position, size float64) string {
	display := "none"
	if p.Visible {
		display = "block"
	}
	return fmt.Sprintf("position:absolute;top:%.0fpx;left:%.0fpx;width:%.0fpx;height:%.0fpx;z-index:2147483647;display:%s",
		p.Top, p.Left, size, size, display)
}
