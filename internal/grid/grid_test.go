package grid

import (
	"testing"

	"github.com/annel0/starforge/internal/vec"
)

func TestSnapRoundsToNearestNode(t *testing.T) {
	cases := []struct {
		in       vec.Vec2F
		gridSize int
		want     vec.Vec2F
	}{
		{vec.Vec2F{X: 100, Y: 100}, 32, vec.Vec2F{X: 96, Y: 96}},
		{vec.Vec2F{X: 111, Y: 111}, 32, vec.Vec2F{X: 96, Y: 96}},
		{vec.Vec2F{X: 112, Y: 112}, 32, vec.Vec2F{X: 128, Y: 128}}, // середина округляется от нуля
		{vec.Vec2F{X: 113, Y: 113}, 32, vec.Vec2F{X: 128, Y: 128}},
		{vec.Vec2F{X: -100, Y: -100}, 32, vec.Vec2F{X: -96, Y: -96}},
		{vec.Vec2F{X: 0, Y: 0}, 16, vec.Vec2F{X: 0, Y: 0}},
		{vec.Vec2F{X: 7.9, Y: 8.1}, 8, vec.Vec2F{X: 8, Y: 8}},
	}

	for _, tc := range cases {
		got := Snap(tc.in, tc.gridSize)
		if got != tc.want {
			t.Errorf("Snap(%v, %d): ожидалось %v, получено %v", tc.in, tc.gridSize, tc.want, got)
		}
	}
}

func TestSnapIdempotent(t *testing.T) {
	points := []vec.Vec2F{
		{X: 100, Y: 100},
		{X: -37.4, Y: 251.9},
		{X: 0.5, Y: -0.5},
	}

	for _, p := range points {
		for _, g := range []int{8, 16, 32, 96} {
			once := Snap(p, g)
			twice := Snap(once, g)
			if once != twice {
				t.Errorf("Snap не идемпотентен для %v при g=%d: %v != %v", p, g, once, twice)
			}
		}
	}
}

func TestScreenToWorld(t *testing.T) {
	world := ScreenToWorld(vec.Vec2F{X: 100, Y: 50}, vec.Vec2F{X: 200, Y: -30}, 1)
	want := vec.Vec2F{X: 300, Y: 20}
	if world != want {
		t.Errorf("ScreenToWorld: ожидалось %v, получено %v", want, world)
	}
}

func TestClampGridSize(t *testing.T) {
	cases := []struct{ in, want int }{
		{4, 8},
		{8, 8},
		{33, 33},
		{96, 96},
		{200, 96},
		{-10, 8},
	}
	for _, tc := range cases {
		if got := ClampGridSize(tc.in); got != tc.want {
			t.Errorf("ClampGridSize(%d): ожидалось %d, получено %d", tc.in, tc.want, got)
		}
	}

	if got := ClampGridSizeF(32.6); got != 33 {
		t.Errorf("ClampGridSizeF(32.6): ожидалось 33, получено %d", got)
	}
	if got := ClampGridSizeF(1000); got != 96 {
		t.Errorf("ClampGridSizeF(1000): ожидалось 96, получено %d", got)
	}
}

func TestLinesCoverViewport(t *testing.T) {
	view := Viewport{Origin: vec.Vec2F{X: 10, Y: 10}, Width: 100, Height: 100}
	lines := Lines(view, 32)

	if len(lines) == 0 {
		t.Fatal("Lines вернул пустой набор")
	}

	var vertical, horizontal int
	for _, l := range lines {
		if l.Vertical {
			vertical++
			if l.At > view.Origin.X+view.Width || l.At < view.Origin.X-32 {
				t.Errorf("Вертикальная линия за пределами области: %v", l.At)
			}
		} else {
			horizontal++
		}
	}
	if vertical == 0 || horizontal == 0 {
		t.Errorf("Ожидались обе ориентации линий: vertical=%d, horizontal=%d", vertical, horizontal)
	}
}

func TestLinesMajorEveryFifth(t *testing.T) {
	view := Viewport{Origin: vec.Vec2F{X: 0, Y: 0}, Width: 320, Height: 0}
	lines := Lines(view, 32)

	for _, l := range lines {
		if !l.Vertical {
			continue
		}
		wantMajor := int(l.At)%(32*MajorEvery) == 0
		if l.Major != wantMajor {
			t.Errorf("Линия X=%v: major=%v, ожидалось %v", l.At, l.Major, wantMajor)
		}
	}
}
