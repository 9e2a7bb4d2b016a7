// Command nescore is a thin ebiten host around the emulator core: it
// owns ROM loading, the window/audio surfaces, and keyboard polling -
// the external collaborators spec.md section 1 explicitly keeps out
// of the core - driving the console through its run-one-frame,
// set-input, get-framebuffer and drain-samples surface exactly as an
// embedding application would.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"image"
	"image/draw"
	"log"
	"os"
	"path/filepath"

	"nescore/internal/console"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

var (
	romFile  = flag.String("rom", "", "path to an iNES ROM to run")
	scale    = flag.Int("scale", 3, "integer window scale factor")
	stateDir = flag.String("state-dir", "", "directory for save-state snapshots (default: alongside the ROM)")
)

const sampleRate = 44100

func main() {
	flag.Parse()
	if *romFile == "" {
		log.Fatal("usage: nescore -rom path/to/game.nes")
	}

	data, snapDir, err := loadROMAndPrepareSnapshotDir(context.Background(), *romFile, *stateDir)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	nes, err := console.Load(data)
	if err != nil {
		log.Fatalf("loading ROM: %v", err)
	}

	g := &game{nes: nes, snapDir: snapDir, scaled: image.NewRGBA(image.Rect(0, 0, console.FrameWidth**scale, console.FrameHeight**scale))}

	audioCtx := audio.NewContext(sampleRate)
	player, err := audio.NewPlayer(audioCtx, &sampleStream{nes: nes})
	if err != nil {
		log.Fatalf("creating audio player: %v", err)
	}
	player.Play()
	g.player = player

	ebiten.SetWindowSize(console.FrameWidth**scale, console.FrameHeight**scale)
	ebiten.SetWindowTitle("nescore")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

// loadROMAndPrepareSnapshotDir reads the ROM file and ensures the
// save-state snapshot directory exists concurrently: neither depends
// on the other's result, so an errgroup.Group replaces the
// read-then-mkdir sequencing a naive implementation would use.
func loadROMAndPrepareSnapshotDir(ctx context.Context, romPath, stateDir string) ([]byte, string, error) {
	if stateDir == "" {
		stateDir = filepath.Join(filepath.Dir(romPath), ".nescore-states")
	}

	g, _ := errgroup.WithContext(ctx)

	var data []byte
	g.Go(func() error {
		var err error
		data, err = os.ReadFile(romPath)
		return err
	})
	g.Go(func() error {
		return os.MkdirAll(stateDir, 0o755)
	})

	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return data, stateDir, nil
}

// keymap mirrors gintendo's console.controller key assignment.
var keymap = []struct {
	key ebiten.Key
	btn console.Button
}{
	{ebiten.KeyA, console.ButtonA},
	{ebiten.KeyB, console.ButtonB},
	{ebiten.KeySpace, console.ButtonSelect},
	{ebiten.KeyEnter, console.ButtonStart},
	{ebiten.KeyUp, console.ButtonUp},
	{ebiten.KeyDown, console.ButtonDown},
	{ebiten.KeyLeft, console.ButtonLeft},
	{ebiten.KeyRight, console.ButtonRight},
}

type game struct {
	nes     *console.Console
	player  *audio.Player
	snapDir string

	frame  image.RGBA // reused backing for the framebuffer source image
	scaled *image.RGBA
}

func (g *game) Update() error {
	for _, k := range keymap {
		g.nes.SetInput(1, k.btn, ebiten.IsKeyPressed(k.key))
	}
	if ebiten.IsKeyPressed(ebiten.KeyF5) {
		_ = os.WriteFile(filepath.Join(g.snapDir, "quicksave.bin"), g.nes.SaveState(), 0o644)
	}
	if ebiten.IsKeyPressed(ebiten.KeyF9) {
		if data, err := os.ReadFile(filepath.Join(g.snapDir, "quicksave.bin")); err == nil {
			_ = g.nes.LoadState(data)
		}
	}
	g.nes.RunOneFrame()
	return nil
}

// Draw copies the packed framebuffer into an image.RGBA and uses
// x/image/draw's scaler to blit it up to the window's integer scale
// factor, replacing a hand-rolled nearest-neighbor
// pixel-doubling loop with the library's Scale.
func (g *game) Draw(screen *ebiten.Image) {
	px := g.nes.Framebuffer()
	pix := make([]byte, 0, len(px)*4)
	for _, c := range px {
		pix = append(pix, byte(c>>16), byte(c>>8), byte(c), 0xFF)
	}
	g.frame = image.RGBA{
		Pix:    pix,
		Stride: console.FrameWidth * 4,
		Rect:   image.Rect(0, 0, console.FrameWidth, console.FrameHeight),
	}

	xdraw.NearestNeighbor.Scale(g.scaled, g.scaled.Bounds(), &g.frame, g.frame.Bounds(), draw.Over, nil)
	screen.WritePixels(g.scaled.Pix)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.scaled.Bounds().Dx(), g.scaled.Bounds().Dy()
}

// sampleStream adapts the console's mono f32 PCM output to the
// io.Reader ebiten's streaming audio player expects: 16-bit signed,
// little-endian, stereo (the mono channel is duplicated to both).
type sampleStream struct {
	nes *console.Console
	buf []byte
}

func (s *sampleStream) Read(p []byte) (int, error) {
	for len(s.buf) < len(p) {
		samples := s.nes.DrainSamples()
		if len(samples) == 0 {
			// Nothing new yet; hand back silence rather than
			// blocking, since the core advances only when Update
			// calls RunOneFrame.
			for len(s.buf) < len(p) {
				s.buf = append(s.buf, 0, 0, 0, 0)
			}
			break
		}
		for _, f := range samples {
			v := int16(f * 32767)
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(v))
			s.buf = append(s.buf, b[0], b[1], b[0], b[1])
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}
