package anywin

import (
	"image"
	"image/color"
	"path/filepath"
	"reflect"
	"testing"
)

func TestImageConversion(t *testing.T) {
	inImg := image.NewRGBA(image.Rect(1, 1, 3, 3))
	inImg.SetRGBA(1, 1, color.RGBA{R: 0x13, G: 0x37, B: 0x66, A: 0xff})
	inImg.SetRGBA(1, 2, color.RGBA{R: 0x37, G: 0x37, B: 0x66, A: 0xff})
	inImg.SetRGBA(2, 1, color.RGBA{R: 0x10, G: 0x37, B: 0x66, A: 0xff})
	inImg.SetRGBA(2, 2, color.RGBA{R: 0x5, G: 0x37, B: 0x66, A: 0xff})

	tensor := FromImage(inImg)
	if tensor.Width != 2 || tensor.Height != 2 || tensor.Depth != 3 {
		t.Fatalf("unexpected dimensions %dx%dx%d", tensor.Width, tensor.Height, tensor.Depth)
	}
	outImg := tensor.Image()

	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			oldR, oldG, oldB, _ := inImg.At(x+1, y+1).RGBA()
			newR, newG, newB, _ := outImg.At(x, y).RGBA()
			olds := []uint32{oldR, oldG, oldB}
			news := []uint32{newR, newG, newB}
			for z, expected := range olds {
				a := news[z]
				if expected/0x100 != a/0x100 {
					t.Errorf("value %d,%d,%d should be %d but got %d", x, y, z,
						expected/0x100, a/0x100)
				}
			}
		}
	}
}

func TestImageGray(t *testing.T) {
	img := NewImage(2, 1, 3)
	copy(img.Pix, []uint8{30, 60, 90, 200, 200, 200})
	gray := img.Gray()
	if !reflect.DeepEqual(gray.Pix, []uint8{54, 200}) {
		t.Errorf("unexpected gray values: %v", gray.Pix)
	}
	if gray.Gray() != gray {
		t.Error("gray image should be returned as-is")
	}
}

func TestImageSavePNG(t *testing.T) {
	img := NewImage(3, 2, 1)
	copy(img.Pix, []uint8{1, 2, 3, 4, 5, 6})
	path := filepath.Join(t.TempDir(), "img.png")
	if err := img.SavePNG(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Gray().Pix, img.Pix) {
		t.Errorf("expected %v but got %v", img.Pix, loaded.Gray().Pix)
	}
}

func TestImageCropColumns(t *testing.T) {
	img := testWordImage()
	crop := img.CropColumns(2, 5)
	expected := []uint8{30, 40, 50, 31, 41, 51}
	if crop.Width != 3 || !reflect.DeepEqual(crop.Pix, expected) {
		t.Errorf("expected %v but got %v", expected, crop.Pix)
	}
}
