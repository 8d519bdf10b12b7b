package headlessterm

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"sort"
	"sync"

	"golang.org/x/image/draw"
)

// ImageFormat tags how an image payload arrived on the wire.
type ImageFormat uint8

const (
	FormatRGB ImageFormat = iota
	FormatRGBA
	FormatPNG
	FormatJPEG
	FormatGIF
)

// Image is one decoded picture held by the ImageManager. Pixels is always
// RGBA regardless of the wire format.
type Image struct {
	ID       uint32
	Width    int
	Height   int
	Pixels   []byte
	Format   ImageFormat
	HasAlpha bool
}

// Placement is one displayed instance of an image, anchored to a grid
// position and sized in cells. The source rectangle selects a pixel crop
// of the image; zero width/height mean the whole picture.
type Placement struct {
	ID      uint32
	ImageID uint32

	Row, Col   int
	Cols, Rows int

	SrcX, SrcY uint32
	SrcW, SrcH uint32

	ZIndex int32
}

// maxImageDimension caps decoded pictures; anything larger is scaled down
// so one transmission cannot pin unbounded pixel memory.
const maxImageDimension = 4096

// ImageManager owns the images and placements the kitty protocol
// transmits. IDs are handed out from monotonic counters; an explicitly
// supplied ID fast-forwards its counter but never rewinds it, so a
// generated ID can never collide with one the client chose earlier.
type ImageManager struct {
	mu sync.Mutex

	images     map[uint32]*Image
	placements map[uint32]*Placement

	nextImage     uint32
	nextPlacement uint32

	// In-flight chunked transmissions, keyed by image id (0 for an
	// anonymous transmission).
	chunks map[uint32][]byte
}

// NewImageManager returns an empty store.
func NewImageManager() *ImageManager {
	return &ImageManager{
		images:     make(map[uint32]*Image),
		placements: make(map[uint32]*Placement),
		chunks:     make(map[uint32][]byte),
	}
}

// NextImageID allocates a fresh image id, starting at 1.
func (m *ImageManager) NextImageID() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextImage++
	return m.nextImage
}

// NextPlacementID allocates a fresh placement id, starting at 1.
func (m *ImageManager) NextPlacementID() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPlacement++
	return m.nextPlacement
}

// Put stores an image. With ID zero an id is allocated; an explicit ID
// replaces any image already under it and fast-forwards the allocator
// past it.
func (m *ImageManager) Put(img *Image) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if img.ID == 0 {
		m.nextImage++
		img.ID = m.nextImage
	} else if img.ID > m.nextImage {
		m.nextImage = img.ID
	}
	m.images[img.ID] = img
	return img.ID
}

// Image looks up an image by id.
func (m *ImageManager) Image(id uint32) *Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.images[id]
}

// DeleteImage removes an image and every placement that points at it.
func (m *ImageManager) DeleteImage(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, id)
	for pid, p := range m.placements {
		if p.ImageID == id {
			delete(m.placements, pid)
		}
	}
}

// Place registers a placement. With ID zero an id is allocated; an
// explicit id fast-forwards the allocator the same way Put does.
func (m *ImageManager) Place(p *Placement) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.nextPlacement++
		p.ID = m.nextPlacement
	} else if p.ID > m.nextPlacement {
		m.nextPlacement = p.ID
	}
	m.placements[p.ID] = p
	return p.ID
}

// Placement looks up a placement by id.
func (m *ImageManager) Placement(id uint32) *Placement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.placements[id]
}

// DeletePlacement removes one placement.
func (m *ImageManager) DeletePlacement(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.placements, id)
}

// DeletePlacementsOf removes every placement of one image, keeping the
// image itself.
func (m *ImageManager) DeletePlacementsOf(imageID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pid, p := range m.placements {
		if p.ImageID == imageID {
			delete(m.placements, pid)
		}
	}
}

// DeleteAllPlacements clears every placement.
func (m *ImageManager) DeleteAllPlacements() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placements = make(map[uint32]*Placement)
}

// Placements lists every placement ordered by z-index, then id for a
// stable paint order.
func (m *ImageManager) Placements() []*Placement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Placement, 0, len(m.placements))
	for _, p := range m.placements {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZIndex != out[j].ZIndex {
			return out[i].ZIndex < out[j].ZIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PlacementsInRow lists the placements whose cell rectangle intersects a
// screen row, in paint order.
func (m *ImageManager) PlacementsInRow(row int) []*Placement {
	all := m.Placements()
	out := make([]*Placement, 0, len(all))
	for _, p := range all {
		if row >= p.Row && row < p.Row+p.Rows {
			out = append(out, p)
		}
	}
	return out
}

// --- Chunked transmission ---

// appendChunk buffers one chunk of an in-flight transmission.
func (m *ImageManager) appendChunk(id uint32, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[id] = append(m.chunks[id], data...)
}

// takeChunks returns and forgets the buffered transmission for id,
// concatenated with the final chunk.
func (m *ImageManager) takeChunks(id uint32, final []byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	full := append(m.chunks[id], final...)
	delete(m.chunks, id)
	return full
}

// dropChunks abandons an in-flight transmission after a protocol error.
func (m *ImageManager) dropChunks(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, id)
}

// Dispose releases every pixel buffer and placement.
func (m *ImageManager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = make(map[uint32]*Image)
	m.placements = make(map[uint32]*Placement)
	m.chunks = make(map[uint32][]byte)
}

// decodeImage turns a compressed payload into RGBA pixels, downscaling
// anything beyond maxImageDimension.
func decodeImage(data []byte, format ImageFormat) (*Image, error) {
	var (
		src image.Image
		err error
	)
	switch format {
	case FormatPNG:
		src, err = png.Decode(bytes.NewReader(data))
	case FormatJPEG:
		src, err = jpeg.Decode(bytes.NewReader(data))
	case FormatGIF:
		src, err = gif.Decode(bytes.NewReader(data))
	default:
		src, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	scaleW, scaleH := w, h
	for scaleW > maxImageDimension || scaleH > maxImageDimension {
		scaleW /= 2
		scaleH /= 2
	}

	rgba := image.NewRGBA(image.Rect(0, 0, scaleW, scaleH))
	if scaleW == w && scaleH == h {
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), src, bounds, draw.Src, nil)
	}

	return &Image{
		Width:    scaleW,
		Height:   scaleH,
		Pixels:   rgba.Pix,
		Format:   format,
		HasAlpha: format != FormatJPEG,
	}, nil
}

// rawToImage wraps raw RGB/RGBA pixel data, expanding RGB to RGBA.
func rawToImage(data []byte, width, height int, format ImageFormat) *Image {
	if format == FormatRGB {
		rgba := make([]byte, 0, width*height*4)
		for i := 0; i+2 < len(data); i += 3 {
			rgba = append(rgba, data[i], data[i+1], data[i+2], 255)
		}
		data = rgba
	}
	return &Image{
		Width:    width,
		Height:   height,
		Pixels:   data,
		Format:   format,
		HasAlpha: format == FormatRGBA,
	}
}
