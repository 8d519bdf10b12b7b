package headlessterm

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The kitty graphics protocol arrives over APC as "G<key>=<value>,...;
// <base64 payload>". This file parses that form, resolves placement
// geometry, and drives the ImageManager.

// KittyAction selects what a graphics command does.
type KittyAction byte

const (
	KittyTransmit           KittyAction = 't'
	KittyTransmitAndDisplay KittyAction = 'T'
	KittyDisplay            KittyAction = 'd'
	KittyPut                KittyAction = 'p'
	KittyQuery              KittyAction = 'q'
	KittyDelete             KittyAction = 'D'
)

// KittyCommand is one parsed graphics escape.
type KittyCommand struct {
	Action KittyAction

	ImageID     uint32 // i=
	PlacementID uint32 // p=

	Format      uint32 // f= (24 rgb, 32 rgba, 100 png)
	PixelWidth  uint32 // s=
	PixelHeight uint32 // v=
	Compression byte   // o= ('z' for zlib)
	Medium      byte   // t= ('d' direct; files are not supported)
	More        bool   // m=1, further chunks follow

	SrcX, SrcY uint32 // x=, y=
	SrcW, SrcH uint32 // w=, h=
	Cols, Rows uint32 // c=, r=
	ZIndex     int32  // z=

	// Delete selector (d=); lower-case keeps the image, upper-case also
	// deletes it.
	DeleteWhat byte

	// Quiet is the q= suppression level: 1 silences success responses,
	// 2 silences failures too.
	Quiet uint32

	CursorMovement uint32 // C=1 keeps the cursor in place

	Payload []byte // base64-decoded
}

// Silent reports whether responses of the given severity are suppressed.
func (c *KittyCommand) Silent(isError bool) bool {
	if isError {
		return c.Quiet >= 2
	}
	return c.Quiet >= 1
}

// parseKittyCommand decodes the body of a kitty APC (after the leading G).
func parseKittyCommand(body []byte) (*KittyCommand, error) {
	cmd := &KittyCommand{
		Action: KittyTransmitAndDisplay,
		Medium: 'd',
		Format: 32,
	}

	control := string(body)
	if i := bytes.IndexByte(body, ';'); i >= 0 {
		control = string(body[:i])
		payload, err := base64.StdEncoding.DecodeString(string(body[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("kitty: bad payload encoding: %w", err)
		}
		cmd.Payload = payload
	}

	for _, field := range strings.Split(control, ",") {
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		num := func() uint32 {
			n, _ := strconv.ParseUint(value, 10, 32)
			return uint32(n)
		}
		switch key {
		case "a":
			cmd.Action = KittyAction(value[0])
		case "i":
			cmd.ImageID = num()
		case "p":
			cmd.PlacementID = num()
		case "f":
			cmd.Format = num()
		case "s":
			cmd.PixelWidth = num()
		case "v":
			cmd.PixelHeight = num()
		case "o":
			cmd.Compression = value[0]
		case "t":
			cmd.Medium = value[0]
		case "m":
			cmd.More = value == "1"
		case "x":
			cmd.SrcX = num()
		case "y":
			cmd.SrcY = num()
		case "w":
			cmd.SrcW = num()
		case "h":
			cmd.SrcH = num()
		case "c":
			cmd.Cols = num()
		case "r":
			cmd.Rows = num()
		case "z":
			n, _ := strconv.ParseInt(value, 10, 32)
			cmd.ZIndex = int32(n)
		case "d":
			cmd.DeleteWhat = value[0]
		case "q":
			cmd.Quiet = num()
		case "C":
			cmd.CursorMovement = num()
		}
	}
	return cmd, nil
}

// kittyResponse formats the acknowledgement APC the protocol expects.
func kittyResponse(imageID uint32, message string) string {
	var b strings.Builder
	b.WriteString("\x1b_G")
	if imageID > 0 {
		fmt.Fprintf(&b, "i=%d", imageID)
	}
	b.WriteByte(';')
	b.WriteString(message)
	b.WriteString("\x1b\\")
	return b.String()
}

// Default cell size in pixels, used when the embedder has not told us
// better. These match the conventional 10x20 bitmap cell.
const (
	defaultCellWidth  = 10
	defaultCellHeight = 20
)

// PlacementGeometry is the resolved grid landing of a display command.
type PlacementGeometry struct {
	Row, Col   int
	Cols, Rows int
	SrcX, SrcY uint32
	SrcW, SrcH uint32
}

// ResolveGeometry decides where a display command lands and how many
// cells it spans. The position defaults to the cursor; when the size is
// cell-based (c=/r=), x=/y= are grid coordinates overriding the cursor
// rather than a pixel crop offset. The span is clipped to the screen, so
// a placement at or past an edge keeps its position but covers zero
// cells. Zero cell pixel sizes fall back to the 10x20 default.
func (c *KittyCommand) ResolveGeometry(cursorRow, cursorCol int, imgW, imgH uint32, cellW, cellH, screenCols, screenRows int) PlacementGeometry {
	g := PlacementGeometry{
		Row: cursorRow, Col: cursorCol,
		SrcX: c.SrcX, SrcY: c.SrcY,
		SrcW: c.SrcW, SrcH: c.SrcH,
	}

	cellSized := c.Cols > 0 || c.Rows > 0
	if cellSized {
		if c.SrcX > 0 {
			g.Col = int(c.SrcX)
		}
		if c.SrcY > 0 {
			g.Row = int(c.SrcY)
		}
		g.SrcX, g.SrcY = 0, 0
	}

	if g.SrcW == 0 {
		g.SrcW = imgW
		if g.SrcX < imgW {
			g.SrcW = imgW - g.SrcX
		}
	}
	if g.SrcH == 0 {
		g.SrcH = imgH
		if g.SrcY < imgH {
			g.SrcH = imgH - g.SrcY
		}
	}

	if cellW <= 0 {
		cellW = defaultCellWidth
	}
	if cellH <= 0 {
		cellH = defaultCellHeight
	}

	g.Cols = int(c.Cols)
	g.Rows = int(c.Rows)
	if g.Cols == 0 {
		g.Cols = int((g.SrcW + uint32(cellW) - 1) / uint32(cellW))
	}
	if g.Rows == 0 {
		g.Rows = int((g.SrcH + uint32(cellH) - 1) / uint32(cellH))
	}

	if screenCols > 0 {
		if max := screenCols - g.Col; g.Cols > max {
			g.Cols = max
		}
		if g.Cols < 0 {
			g.Cols = 0
		}
	}
	if screenRows > 0 {
		if max := screenRows - g.Row; g.Rows > max {
			g.Rows = max
		}
		if g.Rows < 0 {
			g.Rows = 0
		}
	}
	return g
}

// --- Terminal-side protocol driver ---

// handleKittyGraphics executes one graphics command body (the bytes after
// the APC's leading G). A command whose body cannot be parsed is dropped
// without a response; other failures answer with an error response unless
// the client asked for silence. Failures never disturb the screen.
func (t *Terminal) handleKittyGraphics(body []byte) {
	cmd, err := parseKittyCommand(body)
	if err != nil {
		return
	}

	switch cmd.Action {
	case KittyQuery:
		if !cmd.Silent(false) {
			t.emitString(kittyResponse(cmd.ImageID, "OK"))
		}
	case KittyTransmit:
		t.kittyTransmit(cmd)
	case KittyTransmitAndDisplay:
		if t.kittyTransmit(cmd) && !cmd.More {
			t.kittyDisplay(cmd)
		}
	case KittyDisplay, KittyPut:
		t.kittyDisplay(cmd)
	case KittyDelete:
		t.kittyDelete(cmd)
	}
}

// kittyTransmit accumulates chunks and, on the final one, decodes and
// stores the image. Reports whether an image is now stored.
func (t *Terminal) kittyTransmit(cmd *KittyCommand) bool {
	if cmd.Medium != 'd' && cmd.Medium != 0 {
		// File and shared-memory mediums would let the stream read
		// arbitrary paths; refuse them.
		if !cmd.Silent(true) {
			t.emitString(kittyResponse(cmd.ImageID, "EMEDIUM:unsupported"))
		}
		return false
	}

	if cmd.More {
		t.images.appendChunk(cmd.ImageID, cmd.Payload)
		return false
	}
	payload := t.images.takeChunks(cmd.ImageID, cmd.Payload)

	if cmd.Compression == 'z' {
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err == nil {
			payload, err = io.ReadAll(r)
			r.Close()
		}
		if err != nil {
			t.images.dropChunks(cmd.ImageID)
			if !cmd.Silent(true) {
				t.emitString(kittyResponse(cmd.ImageID, "EINVAL:inflate failed"))
			}
			return false
		}
	}

	img, err := decodeKittyPayload(cmd, payload)
	if err != nil {
		if !cmd.Silent(true) {
			t.emitString(kittyResponse(cmd.ImageID, "ENODATA:"+err.Error()))
		}
		return false
	}

	img.ID = cmd.ImageID
	cmd.ImageID = t.images.Put(img)

	if !cmd.Silent(false) {
		t.emitString(kittyResponse(cmd.ImageID, "OK"))
	}
	return true
}

// decodeKittyPayload interprets a complete payload per the f= format key.
func decodeKittyPayload(cmd *KittyCommand, payload []byte) (*Image, error) {
	switch cmd.Format {
	case 24, 32:
		w, h := int(cmd.PixelWidth), int(cmd.PixelHeight)
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("raw image without s=/v= dimensions")
		}
		format := FormatRGBA
		if cmd.Format == 24 {
			format = FormatRGB
		}
		return rawToImage(payload, w, h, format), nil
	case 100:
		return decodeImage(payload, FormatPNG)
	default:
		return decodeImage(payload, FormatRGBA)
	}
}

// kittyDisplay anchors a stored image at the resolved grid position.
func (t *Terminal) kittyDisplay(cmd *KittyCommand) {
	img := t.images.Image(cmd.ImageID)
	if img == nil {
		if !cmd.Silent(true) {
			t.emitString(kittyResponse(cmd.ImageID, "ENOENT:no such image"))
		}
		return
	}

	t.mu.Lock()
	curRow, curCol := t.cur.Row, t.cur.Col
	screenCols, screenRows := t.cols, t.rows
	t.mu.Unlock()

	g := cmd.ResolveGeometry(curRow, curCol, uint32(img.Width), uint32(img.Height),
		defaultCellWidth, defaultCellHeight, screenCols, screenRows)

	t.images.Place(&Placement{
		ID:      cmd.PlacementID,
		ImageID: cmd.ImageID,
		Row:     g.Row,
		Col:     g.Col,
		Cols:    g.Cols,
		Rows:    g.Rows,
		SrcX:    g.SrcX,
		SrcY:    g.SrcY,
		SrcW:    g.SrcW,
		SrcH:    g.SrcH,
		ZIndex:  cmd.ZIndex,
	})

	t.mu.Lock()
	for r := g.Row; r < g.Row+g.Rows && r < t.rows; r++ {
		t.scr.markDirty(r)
	}
	if cmd.CursorMovement == 0 && g.Rows > 0 {
		t.cur.Row = clamp(g.Row+g.Rows-1, 0, t.rows-1)
		t.cur.Col = clamp(g.Col+g.Cols, 0, t.cols)
	}
	t.touch()
	t.mu.Unlock()

	if !cmd.Silent(false) {
		t.emitString(kittyResponse(cmd.ImageID, "OK"))
	}
}

// kittyDelete removes placements and, for upper-case selectors, images.
func (t *Terminal) kittyDelete(cmd *KittyCommand) {
	dropImages := cmd.DeleteWhat >= 'A' && cmd.DeleteWhat <= 'Z'
	switch cmd.DeleteWhat {
	case 'i', 'I':
		if cmd.PlacementID != 0 {
			t.images.DeletePlacement(cmd.PlacementID)
		} else {
			t.images.DeletePlacementsOf(cmd.ImageID)
		}
		if dropImages {
			t.images.DeleteImage(cmd.ImageID)
		}
	default:
		// d=a (or unspecified): everything visible.
		if dropImages {
			for _, p := range t.images.Placements() {
				t.images.DeleteImage(p.ImageID)
			}
		}
		t.images.DeleteAllPlacements()
	}
	t.mu.Lock()
	t.scr.markAllDirty()
	t.touch()
	t.mu.Unlock()
}
