package anywin

import (
	"reflect"
	"testing"
)

func TestResize(t *testing.T) {
	img := NewImage(2, 2, 1)
	copy(img.Pix, []uint8{0, 100, 200, 40})
	actual := Resize(img, 3, 3).Pix
	expected := []uint8{
		0, 50, 100,
		100, 85, 70,
		200, 120, 40,
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestResizeIdentity(t *testing.T) {
	img := testWordImage()
	if !reflect.DeepEqual(Resize(img, img.Width, img.Height), img) {
		t.Error("resizing to the same size should not change the image")
	}
}

func TestResizeHeight(t *testing.T) {
	img := NewImage(5, 2, 3)
	res := ResizeHeight(img, 3)
	if res.Width != 8 || res.Height != 3 || res.Depth != 3 {
		t.Errorf("unexpected dimensions %dx%dx%d", res.Width, res.Height, res.Depth)
	}
	res = ResizeHeight(NewImage(1, 10, 1), 2)
	if res.Width != 1 {
		t.Errorf("width should be at least 1 but got %d", res.Width)
	}
}
