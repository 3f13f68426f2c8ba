// Package visualization draws a session with ebiten and drives it once per
// tick.
package visualization

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"warehouse-viz/internal/common"
	"warehouse-viz/internal/session"
	"warehouse-viz/internal/snapshot"
	"warehouse-viz/internal/visualization/view"
)

const (
	padding         = 50.0
	agentRadius     = 0.35 // world units
	obstacleHalf    = 0.4  // world units
	facingLength    = 0.7  // world units
	carriedBoxScale = 0.5
)

var (
	backgroundColor = color.RGBA{230, 230, 230, 255}
	floorLineColor  = color.RGBA{200, 200, 200, 255}
	dropZoneColor   = color.RGBA{60, 180, 75, 200}
	agentColor      = color.RGBA{0, 0, 255, 255}
	facingColor     = color.RGBA{255, 255, 255, 255}
	heldAgentColor  = color.RGBA{120, 120, 200, 255}

	obstacleColors = map[snapshot.Kind]color.RGBA{
		snapshot.KindBox:    {200, 140, 60, 255},
		snapshot.KindShelf:  {110, 80, 50, 255},
		snapshot.KindBorder: {70, 70, 70, 255},
	}
)

// Renderer implements ebiten.Game for one session.
type Renderer struct {
	ctx        context.Context
	sess       *session.Session
	projectors []view.Projector
	current    int
	logger     *log.Logger

	viewport view.Viewport
	title    string
}

// NewRenderer creates a renderer. Tab cycles through projectors; the first one
// is used initially. The game ends when ctx is cancelled.
func NewRenderer(ctx context.Context, sess *session.Session, title string, logger *log.Logger, projectors ...view.Projector) *Renderer {
	if len(projectors) == 0 {
		projectors = []view.Projector{view.NewIsoProjector(), view.NewTopDownProjector()}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{
		ctx:        ctx,
		sess:       sess,
		projectors: projectors,
		logger:     logger,
		title:      title,
		viewport:   view.Viewport{Padding: padding},
	}
}

func (r *Renderer) projector() view.Projector { return r.projectors[r.current] }

// Update advances the session by one tick.
func (r *Renderer) Update() error {
	if r.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		r.current = (r.current + 1) % len(r.projectors)
		r.logger.Printf("projection: %s", r.projector())
	}
	r.sess.Tick(time.Second / time.Duration(ebiten.TPS()))
	r.calculateTransform()
	return nil
}

// calculateTransform fits the whole grid rather than the current entities.
func (r *Renderer) calculateTransform() {
	cfg := r.sess.Config()
	w, h := float64(cfg.Width), float64(cfg.Height)
	corners := []common.Vector{
		common.NewVector(-0.5, 0, -0.5),
		common.NewVector(w-0.5, 0, -0.5),
		common.NewVector(-0.5, 0, h-0.5),
		common.NewVector(w-0.5, 0, h-0.5),
		common.NewVector(-0.5, 1, -0.5),
		common.NewVector(w-0.5, 1, h-0.5),
	}
	r.viewport.Fit(r.projector().ProjectAll(corners))
}

func (r *Renderer) worldToScreen(v common.Vector) (float32, float32) {
	return r.viewport.ToScreen(r.projector().Project(v))
}

// Draw renders the floor, the drop zone, obstacles and agents.
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	if !r.sess.Seeded() {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%s\nConnecting to simulation... (failures: %d)", r.title, r.sess.Failures()))
		return
	}

	r.drawFloor(screen)
	if dz, ok := r.sess.DropZone(); ok {
		r.drawCell(screen, dz.WorldPosition(), 0.5, dropZoneColor)
	}

	reg := r.sess.Registry()
	for _, o := range reg.Obstacles() {
		clr, ok := obstacleColors[o.Key.Kind]
		if !ok {
			continue
		}
		r.drawCell(screen, o.Position, obstacleHalf, clr)
	}

	scale := float32(r.viewport.Scale())
	body := agentColor
	if r.sess.Held() {
		body = heldAgentColor
	}
	for _, a := range reg.Agents() {
		x, y := r.worldToScreen(a.Pose.Position)
		vector.DrawFilledCircle(screen, x, y, agentRadius*scale, body, true)

		tip := a.Pose.Position.Add(a.Pose.Facing.MultiplyByScalar(facingLength))
		tx, ty := r.worldToScreen(tip)
		vector.StrokeLine(screen, x, y, tx, ty, 2, facingColor, true)

		if a.Carrying {
			half := obstacleHalf * carriedBoxScale * scale
			vector.DrawFilledRect(screen, x-half, y-agentRadius*scale-2*half, 2*half, 2*half, obstacleColors[snapshot.KindBox], false)
		}
	}

	r.drawDebugInfo(screen)
}

func (r *Renderer) drawFloor(screen *ebiten.Image) {
	cfg := r.sess.Config()
	w, h := float64(cfg.Width)-0.5, float64(cfg.Height)-0.5
	for x := 0; x <= cfg.Width; x++ {
		fx := float64(x) - 0.5
		x0, y0 := r.worldToScreen(common.NewVector(fx, 0, -0.5))
		x1, y1 := r.worldToScreen(common.NewVector(fx, 0, h))
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, floorLineColor, false)
	}
	for z := 0; z <= cfg.Height; z++ {
		fz := float64(z) - 0.5
		x0, y0 := r.worldToScreen(common.NewVector(-0.5, 0, fz))
		x1, y1 := r.worldToScreen(common.NewVector(w, 0, fz))
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, floorLineColor, false)
	}
}

// drawCell fills the ground-plane square of half-size half around pos.
func (r *Renderer) drawCell(screen *ebiten.Image, pos common.Vector, half float64, clr color.RGBA) {
	ground := common.NewVector(pos.X, 0, pos.Z)
	corners := []common.Vector{
		ground.Add(common.NewVector(-half, 0, -half)),
		ground.Add(common.NewVector(half, 0, -half)),
		ground.Add(common.NewVector(half, 0, half)),
		ground.Add(common.NewVector(-half, 0, half)),
	}
	var path vector.Path
	for i, c := range corners {
		x, y := r.worldToScreen(c)
		if i == 0 {
			path.MoveTo(x, y)
		} else {
			path.LineTo(x, y)
		}
	}
	path.Close()

	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	cr, cg, cb, ca := clr.RGBA()
	for i := range vs {
		vs[i].SrcX, vs[i].SrcY = 1, 1
		vs[i].ColorR = float32(cr) / 0xffff
		vs[i].ColorG = float32(cg) / 0xffff
		vs[i].ColorB = float32(cb) / 0xffff
		vs[i].ColorA = float32(ca) / 0xffff
	}
	screen.DrawTriangles(vs, is, whitePixel, &ebiten.DrawTrianglesOptions{
		AntiAlias:      true,
		ColorScaleMode: ebiten.ColorScaleModePremultipliedAlpha,
	})
}

func (r *Renderer) drawDebugInfo(screen *ebiten.Image) {
	cfg := r.sess.Config()
	msg := fmt.Sprintf("%s\n", r.title)
	msg += fmt.Sprintf("FPS: %.1f, TPS: %.1f\n", ebiten.ActualFPS(), ebiten.ActualTPS())
	if st, ok := r.sess.Status(); ok {
		msg += fmt.Sprintf("Step: %d", st.CurrentStep)
		if cfg.MaxSteps > 0 {
			msg += fmt.Sprintf("/%d", cfg.MaxSteps)
		}
		msg += fmt.Sprintf(", boxes dropped: %d/%d\n", st.DroppedBoxes, cfg.Boxes)
	} else {
		msg += "Step: N/A\n"
	}
	msg += fmt.Sprintf("Fetch: %s", r.sess.State())
	if n := r.sess.Failures(); n > 0 {
		msg += fmt.Sprintf(" (%d failed)", n)
	}
	if r.sess.Done() {
		msg += ", simulation complete"
	}
	msg += "\n"
	reg := r.sess.Registry()
	msg += fmt.Sprintf("Agents: %d, obstacles: %d (boxes: %d)\n",
		len(reg.Agents()), reg.ObstacleCount(), len(reg.ObstacleKeys(snapshot.KindBox)))
	msg += fmt.Sprintf("View: %s (Tab to switch)", r.projector().Name())

	ebitenutil.DebugPrint(screen, msg)
}

// Layout is called when the window size changes.
func (r *Renderer) Layout(outsideWidth, outsideHeight int) (int, int) {
	r.viewport.Width = outsideWidth
	r.viewport.Height = outsideHeight
	return outsideWidth, outsideHeight
}

var whitePixel = func() *ebiten.Image {
	img := ebiten.NewImage(3, 3)
	img.Fill(color.White)
	return img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
}()
