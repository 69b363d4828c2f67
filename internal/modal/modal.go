// Package modal tracks which dashboard dialogs are open. Every dialog is an
// independent flag; there is no stacking order.
package modal

// Kind identifies a dialog.
type Kind string

const (
	Note            Kind = "note"
	Download        Kind = "download"
	ImagePreview    Kind = "image-preview"
	ReferencePicker Kind = "reference-picker"
	ReferenceViewer Kind = "reference-viewer"
	Comparison      Kind = "comparison"
	ReviewQueue     Kind = "review-queue"
	ImageZoom       Kind = "image-zoom"
)

// Kinds lists every dialog in render order.
var Kinds = []Kind{Note, Download, ImagePreview, ReferencePicker, ReferenceViewer, Comparison, ReviewQueue, ImageZoom}

// Parse validates a dialog name.
func Parse(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Controller holds the open/closed flag of each dialog. The zero value has every
// dialog closed and no hooks.
type Controller struct {
	open    map[Kind]bool
	onClose map[Kind]func()
}

// New returns a controller with every dialog closed.
func New() *Controller {
	return &Controller{
		open:    make(map[Kind]bool),
		onClose: make(map[Kind]func()),
	}
}

// OnClose registers a hook that clears the transient state owned by a dialog.
// It runs every time the dialog goes from open to closed.
func (c *Controller) OnClose(k Kind, fn func()) {
	if c.onClose == nil {
		c.onClose = make(map[Kind]func())
	}
	c.onClose[k] = fn
}

// Open marks a dialog as active.
func (c *Controller) Open(k Kind) {
	if c.open == nil {
		c.open = make(map[Kind]bool)
	}
	c.open[k] = true
}

// Close deactivates a dialog. Closing a closed dialog does nothing.
func (c *Controller) Close(k Kind) {
	if !c.open[k] {
		return
	}
	delete(c.open, k)
	if fn := c.onClose[k]; fn != nil {
		fn()
	}
}

// CloseAll closes every dialog unconditionally.
func (c *Controller) CloseAll() {
	for _, k := range Kinds {
		c.Close(k)
	}
}

// IsOpen reports whether a dialog is active.
func (c *Controller) IsOpen(k Kind) bool {
	return c.open[k]
}

// Active lists the open dialogs in render order.
func (c *Controller) Active() []Kind {
	var active []Kind
	for _, k := range Kinds {
		if c.open[k] {
			active = append(active, k)
		}
	}
	return active
}

// Any reports whether at least one dialog is open.
func (c *Controller) Any() bool {
	return len(c.open) > 0
}
