package gui

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nya/engine/core"
)

type Style struct {
	WindowPadding float32
	WindowSpacing float32
	TitlePadding  float32
	WindowBg      uint32
	TitleBg       uint32
	Text          uint32
}

func DefaultStyle() Style {
	return Style{
		WindowPadding: 8,
		WindowSpacing: 10,
		TitlePadding:  4,
		WindowBg:      RGBA(15, 15, 15, 240),
		TitleBg:       RGBA(41, 74, 122, 255),
		Text:          RGBA(255, 255, 255, 255),
	}
}

type window struct {
	title string
	lines []string
}

// Context is an immediate mode GUI: windows are declared between NewFrame and Render on
// every frame and turned into draw lists by Render. Windows stack down the left edge in
// declaration order.
type Context struct {
	Style Style

	atlas       *Atlas
	metrics     *core.Metrics
	displaySize mgl32.Vec2
	deltaTime   float64

	inFrame bool
	current *window
	windows []*window

	lists    []*DrawList
	drawData DrawData
}

func NewContext(atlas *Atlas) (*Context, error) {
	if err := core.Check(atlas != nil, "create gui context", "atlas is nil"); err != nil {
		return nil, err
	}
	return &Context{
		Style:   DefaultStyle(),
		atlas:   atlas,
		metrics: core.NewMetrics(),
	}, nil
}

func (c *Context) Atlas() *Atlas {
	return c.atlas
}

// SetDisplaySize sets the size in pixels of the surface the GUI is drawn on.
func (c *Context) SetDisplaySize(width, height float32) {
	c.displaySize = mgl32.Vec2{width, height}
}

// NewFrame starts declaring the windows of a frame that follows one of dt seconds.
func (c *Context) NewFrame(dt float64) error {
	const op = "gui new frame"
	if err := core.Check(c.displaySize.X() > 0 && c.displaySize.Y() > 0, op, "display size is not set"); err != nil {
		return err
	}
	if err := core.Check(c.current == nil, op, "window %q was not ended", c.title()); err != nil {
		return err
	}
	if dt > 0 {
		c.metrics.Update(dt)
	}
	c.deltaTime = dt
	c.windows = c.windows[:0]
	c.inFrame = true
	return nil
}

func (c *Context) DeltaTime() float64 {
	return c.deltaTime
}

// Framerate returns the frames per second and the average frame time in milliseconds.
func (c *Context) Framerate() (float64, float64) {
	return c.metrics.Frame()
}

func (c *Context) Begin(title string) error {
	const op = "gui begin"
	if err := core.Check(c.inFrame, op, "no frame started"); err != nil {
		return err
	}
	if err := core.Check(c.current == nil, op, "window %q is still open", c.title()); err != nil {
		return err
	}
	c.current = &window{title: title}
	return nil
}

// Text adds one formatted line to the open window.
func (c *Context) Text(format string, args ...interface{}) error {
	if err := core.Check(c.current != nil, "gui text", "no window open"); err != nil {
		return err
	}
	c.current.lines = append(c.current.lines, fmt.Sprintf(format, args...))
	return nil
}

func (c *Context) End() error {
	if err := core.Check(c.current != nil, "gui end", "no window open"); err != nil {
		return err
	}
	c.windows = append(c.windows, c.current)
	c.current = nil
	return nil
}

func (c *Context) title() string {
	if c.current == nil {
		return ""
	}
	return c.current.title
}

// Render lays out the windows of the frame. The returned draw data stays valid until the
// next call to Render.
func (c *Context) Render() (*DrawData, error) {
	const op = "gui render"
	if err := core.Check(c.inFrame, op, "no frame started"); err != nil {
		return nil, err
	}
	if err := core.Check(c.current == nil, op, "window %q was not ended", c.title()); err != nil {
		return nil, err
	}
	c.inFrame = false

	for len(c.lists) < len(c.windows) {
		c.lists = append(c.lists, &DrawList{})
	}

	c.drawData = DrawData{
		Lists:       c.lists[:len(c.windows)],
		DisplaySize: c.displaySize,
	}
	y := c.Style.WindowSpacing
	for i, w := range c.windows {
		list := c.lists[i]
		list.reset()
		y += c.layoutWindow(list, w, mgl32.Vec2{c.Style.WindowSpacing, y}) + c.Style.WindowSpacing

		c.drawData.TotalVtxCount += len(list.Vertices)
		c.drawData.TotalIdxCount += len(list.Indices)
	}
	return &c.drawData, nil
}

// layoutWindow draws w with its top left corner at pos and returns its height.
func (c *Context) layoutWindow(list *DrawList, w *window, pos mgl32.Vec2) float32 {
	s := c.Style
	titleSize := c.atlas.MeasureText(w.title)
	width := titleSize.X() + 2*s.TitlePadding
	for _, line := range w.lines {
		if lw := c.atlas.MeasureText(line).X() + 2*s.WindowPadding; lw > width {
			width = lw
		}
	}
	titleHeight := titleSize.Y() + 2*s.TitlePadding
	height := titleHeight + 2*s.WindowPadding + float32(len(w.lines))*c.atlas.LineHeight

	max := pos.Add(mgl32.Vec2{width, height})
	list.pushClip(mgl32.Vec4{pos.X(), pos.Y(), max.X(), max.Y()})
	list.AddRectFilled(c.atlas, pos, max, s.WindowBg)
	list.AddRectFilled(c.atlas, pos, mgl32.Vec2{max.X(), pos.Y() + titleHeight}, s.TitleBg)
	list.AddText(c.atlas, pos.Add(mgl32.Vec2{s.TitlePadding, s.TitlePadding}), s.Text, w.title)

	cursor := pos.Add(mgl32.Vec2{s.WindowPadding, titleHeight + s.WindowPadding})
	for _, line := range w.lines {
		list.AddText(c.atlas, cursor, s.Text, line)
		cursor[1] += c.atlas.LineHeight
	}
	return height
}
