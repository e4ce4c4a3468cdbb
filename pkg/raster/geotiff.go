package raster

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// TIFF tags read or written by the codec.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339

	tagModelPixelScale    = 33550
	tagModelTiepoint      = 33922
	tagModelTransform     = 34264
	tagGeoKeyDirectory    = 34735
	tagGDALNoData         = 42113
	keyModelType          = 1024
	keyRasterType         = 1025
	keyGeographicType     = 2048
	keyProjectedCSType    = 3072
	modelTypeProjected    = 1
	modelTypeGeographic   = 2
	rasterPixelIsArea     = 1
	rasterPixelIsPoint    = 2
	geoKeyUserDefined     = 32767
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionPackBits   = 32773
	compressionDeflateOld = 32946
)

// TIFF field types.
const (
	dtByte   = 1
	dtASCII  = 2
	dtShort  = 3
	dtLong   = 4
	dtRatio  = 5
	dtSByte  = 6
	dtUndef  = 7
	dtSShort = 8
	dtSLong  = 9
	dtSRatio = 10
	dtFloat  = 11
	dtDouble = 12
	dtLong8  = 16
)

func fieldSize(typ uint16) int {
	switch typ {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRatio, dtSRatio, dtDouble, dtLong8:
		return 8
	}
	return 0
}

type ifdEntry struct {
	typ   uint16
	count int
	raw   []byte
}

func (e ifdEntry) uints(order binary.ByteOrder) []uint64 {
	out := make([]uint64, 0, e.count)
	size := fieldSize(e.typ)
	for i := range e.count {
		b := e.raw[i*size:]
		switch e.typ {
		case dtByte, dtUndef:
			out = append(out, uint64(b[0]))
		case dtShort:
			out = append(out, uint64(order.Uint16(b)))
		case dtLong:
			out = append(out, uint64(order.Uint32(b)))
		case dtLong8:
			out = append(out, order.Uint64(b))
		}
	}
	return out
}

func (e ifdEntry) floats(order binary.ByteOrder) []float64 {
	if e.typ == dtDouble {
		out := make([]float64, e.count)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(e.raw[i*8:]))
		}
		return out
	}
	if e.typ == dtFloat {
		out := make([]float64, e.count)
		for i := range out {
			out[i] = float64(math.Float32frombits(order.Uint32(e.raw[i*4:])))
		}
		return out
	}
	var out []float64
	for _, u := range e.uints(order) {
		out = append(out, float64(u))
	}
	return out
}

func (e ifdEntry) ascii() string {
	return strings.TrimRight(string(e.raw), "\x00 ")
}

// ReadGeoTIFF reads band 1 of a GeoTIFF.
func ReadGeoTIFF(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	g, err := DecodeGeoTIFF(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "decode %s", path)
	}
	return g, nil
}

// DecodeGeoTIFF decodes band 1 of an in-memory GeoTIFF. Strip and tile
// layouts are supported with no, LZW, deflate or PackBits compression and
// horizontal or floating-point prediction.
func DecodeGeoTIFF(data []byte) (*Grid, error) {
	if len(data) < 8 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "file too short for TIFF")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "not a TIFF file")
	}
	switch order.Uint16(data[2:4]) {
	case 42:
	case 43:
		return nil, errors.New(errors.ErrCodeUnsupported, "BigTIFF is not supported")
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "bad TIFF magic")
	}

	tags, err := readIFD(data, order, int(order.Uint32(data[4:8])))
	if err != nil {
		return nil, err
	}
	first := func(tag uint16, def uint64) uint64 {
		if e, ok := tags[tag]; ok {
			if v := e.uints(order); len(v) > 0 {
				return v[0]
			}
		}
		return def
	}

	width, height := int(first(tagImageWidth, 0)), int(first(tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "missing image dimensions")
	}
	if spp := first(tagSamplesPerPixel, 1); spp != 1 {
		return nil, errors.New(errors.ErrCodeUnsupported, "expected a single band, found %d samples per pixel", spp)
	}
	bits := int(first(tagBitsPerSample, 1))
	format := int(first(tagSampleFormat, 1))
	compression := int(first(tagCompression, compressionNone))
	predictor := int(first(tagPredictor, 1))

	decode, dtype, err := sampleDecoder(format, bits, order)
	if err != nil {
		return nil, err
	}
	bps := bits / 8

	g := &Grid{Width: width, Height: height, Data: make([]float64, width*height), Type: dtype}
	bigEndian := order == binary.ByteOrder(binary.BigEndian)

	unpack := func(block []byte, blockW, rows int) error {
		if len(block) < blockW*rows*bps {
			return errors.New(errors.ErrCodeInvalidInput, "short data block (%d < %d bytes)", len(block), blockW*rows*bps)
		}
		for r := range rows {
			row := block[r*blockW*bps : (r+1)*blockW*bps]
			switch predictor {
			case 2:
				undoHorizontalPredictor(row, bps, order)
			case 3:
				undoFloatPredictor(row, blockW, bps, bigEndian)
			}
		}
		return nil
	}

	var offsets, counts []uint64
	if _, tiled := tags[tagTileWidth]; tiled {
		tw, tl := int(first(tagTileWidth, 0)), int(first(tagTileLength, 0))
		offsets, counts = tags[tagTileOffsets].uints(order), tags[tagTileByteCounts].uints(order)
		if tw <= 0 || tl <= 0 || len(offsets) != len(counts) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "bad tile layout")
		}
		across := (width + tw - 1) / tw
		for t := range offsets {
			block, err := readBlock(data, offsets[t], counts[t], compression, tw*tl*bps)
			if err != nil {
				return nil, err
			}
			if err := unpack(block, tw, tl); err != nil {
				return nil, err
			}
			tx, ty := t%across, t/across
			for r := range tl {
				row := ty*tl + r
				if row >= height {
					break
				}
				for c := range tw {
					col := tx*tw + c
					if col >= width {
						break
					}
					g.Data[row*width+col] = decode(block[(r*tw+c)*bps:])
				}
			}
		}
	} else {
		rps := int(first(tagRowsPerStrip, uint64(height)))
		rps = min(max(rps, 1), height)
		offsets, counts = tags[tagStripOffsets].uints(order), tags[tagStripByteCounts].uints(order)
		if len(offsets) == 0 || len(offsets) != len(counts) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "bad strip layout")
		}
		for s := range offsets {
			rows := min(rps, height-s*rps)
			if rows <= 0 {
				break
			}
			block, err := readBlock(data, offsets[s], counts[s], compression, rows*width*bps)
			if err != nil {
				return nil, err
			}
			if err := unpack(block, width, rows); err != nil {
				return nil, err
			}
			base := s * rps * width
			for i := range rows * width {
				g.Data[base+i] = decode(block[i*bps:])
			}
		}
	}

	readGeoTags(g, tags, order)
	return g, nil
}

func readIFD(data []byte, order binary.ByteOrder, off int) (map[uint16]ifdEntry, error) {
	if off <= 0 || off+2 > len(data) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "IFD offset out of range")
	}
	n := int(order.Uint16(data[off:]))
	if off+2+n*12 > len(data) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "truncated IFD")
	}
	tags := make(map[uint16]ifdEntry, n)
	for i := range n {
		p := off + 2 + i*12
		tag := order.Uint16(data[p:])
		typ := order.Uint16(data[p+2:])
		count := int(order.Uint32(data[p+4:]))
		size := fieldSize(typ) * count
		if fieldSize(typ) == 0 {
			continue
		}
		var raw []byte
		if size <= 4 {
			raw = data[p+8 : p+8+size]
		} else {
			vo := int(order.Uint32(data[p+8:]))
			if vo < 0 || vo+size > len(data) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "tag %d value out of range", tag)
			}
			raw = data[vo : vo+size]
		}
		tags[tag] = ifdEntry{typ: typ, count: count, raw: raw}
	}
	return tags, nil
}

func sampleDecoder(format, bits int, order binary.ByteOrder) (func([]byte) float64, DataType, error) {
	switch {
	case format == 1 && bits == 8:
		return func(b []byte) float64 { return float64(b[0]) }, Byte, nil
	case format == 1 && bits == 16:
		return func(b []byte) float64 { return float64(order.Uint16(b)) }, UInt16, nil
	case format == 1 && bits == 32:
		return func(b []byte) float64 { return float64(order.Uint32(b)) }, UInt32, nil
	case format == 2 && bits == 8:
		return func(b []byte) float64 { return float64(int8(b[0])) }, Int16, nil
	case format == 2 && bits == 16:
		return func(b []byte) float64 { return float64(int16(order.Uint16(b))) }, Int16, nil
	case format == 2 && bits == 32:
		return func(b []byte) float64 { return float64(int32(order.Uint32(b))) }, Int32, nil
	case format == 3 && bits == 32:
		return func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }, Float32, nil
	case format == 3 && bits == 64:
		return func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }, Float64, nil
	}
	return nil, Unknown, errors.New(errors.ErrCodeUnsupported, "unsupported sample format %d with %d bits", format, bits)
}

func readBlock(data []byte, offset, count uint64, compression, expected int) ([]byte, error) {
	if offset+count > uint64(len(data)) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "data block out of range")
	}
	src := data[offset : offset+count]

	var r io.Reader
	switch compression {
	case compressionNone:
		return src, nil
	case compressionPackBits:
		return unpackBits(src, expected), nil
	case compressionLZW:
		lr := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
		defer lr.Close()
		r = lr
	case compressionDeflate, compressionDeflateOld:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "deflate block")
		}
		defer zr.Close()
		r = zr
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported TIFF compression %d", compression)
	}

	out := make([]byte, expected)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decompress block")
	}
	return out, nil
}

func unpackBits(src []byte, expected int) []byte {
	out := make([]byte, 0, expected)
	for i := 0; i < len(src) && len(out) < expected; {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			end := min(i+n+1, len(src))
			out = append(out, src[i:end]...)
			i = end
		case n != -128 && i < len(src):
			for range 1 - n {
				out = append(out, src[i])
			}
			i++
		}
	}
	return out
}

func undoHorizontalPredictor(row []byte, bps int, order binary.ByteOrder) {
	switch bps {
	case 1:
		for i := 1; i < len(row); i++ {
			row[i] += row[i-1]
		}
	case 2:
		for i := 2; i+2 <= len(row); i += 2 {
			order.PutUint16(row[i:], order.Uint16(row[i:])+order.Uint16(row[i-2:]))
		}
	case 4:
		for i := 4; i+4 <= len(row); i += 4 {
			order.PutUint32(row[i:], order.Uint32(row[i:])+order.Uint32(row[i-4:]))
		}
	}
}

// undoFloatPredictor reverses TIFF predictor 3: byte-wise differencing over a
// row whose samples were split into byte planes, most significant plane first.
func undoFloatPredictor(row []byte, width, bps int, bigEndian bool) {
	for i := 1; i < len(row); i++ {
		row[i] += row[i-1]
	}
	tmp := bytes.Clone(row)
	for s := range width {
		for b := range bps {
			v := tmp[b*width+s]
			if bigEndian {
				row[s*bps+b] = v
			} else {
				row[s*bps+bps-1-b] = v
			}
		}
	}
}

func readGeoTags(g *Grid, tags map[uint16]ifdEntry, order binary.ByteOrder) {
	g.Transform = GeoTransform{0, 1, 0, 0, 0, -1}
	if e, ok := tags[tagModelTransform]; ok && e.count >= 16 {
		m := e.floats(order)
		g.Transform = GeoTransform{m[3], m[0], m[1], m[7], m[4], m[5]}
	} else if s, ok := tags[tagModelPixelScale]; ok {
		scale := s.floats(order)
		if tp, ok := tags[tagModelTiepoint]; ok && tp.count >= 6 && len(scale) >= 2 {
			t := tp.floats(order)
			g.Transform = GeoTransform{
				t[3] - t[0]*scale[0], scale[0], 0,
				t[4] + t[1]*scale[1], 0, -scale[1],
			}
		}
	}

	if e, ok := tags[tagGeoKeyDirectory]; ok {
		keys := e.uints(order)
		if len(keys) >= 4 {
			var modelType, rasterType, geographic, projected uint64
			for i := 0; i+3 < len(keys) && i/4 <= int(keys[3]); i += 4 {
				if i == 0 || keys[i+1] != 0 {
					continue
				}
				switch keys[i] {
				case keyModelType:
					modelType = keys[i+3]
				case keyRasterType:
					rasterType = keys[i+3]
				case keyGeographicType:
					geographic = keys[i+3]
				case keyProjectedCSType:
					projected = keys[i+3]
				}
			}
			switch {
			case projected != 0 && projected != geoKeyUserDefined:
				g.CRS = CRS(projected)
			case geographic != 0 && geographic != geoKeyUserDefined:
				g.CRS = CRS(geographic)
			case modelType == modelTypeGeographic:
				g.CRS = WGS84
			}
			if rasterType == rasterPixelIsPoint {
				g.Transform[0] -= 0.5 * g.Transform[1]
				g.Transform[3] -= 0.5 * g.Transform[5]
			}
		}
	}

	if e, ok := tags[tagGDALNoData]; ok {
		if v, err := strconv.ParseFloat(e.ascii(), 64); err == nil {
			g.NoData, g.HasNoData = v, true
		}
	}
}

// WriteGeoTIFF writes g as a deflate-compressed little-endian GeoTIFF in the
// grid's own sample type. Integer grids whose values or nodata do not fit
// that type are widened to Int32, or Float64 when they are not integral.
func WriteGeoTIFF(path string, g *Grid) error {
	var buf bytes.Buffer
	if err := EncodeGeoTIFF(&buf, g); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	return nil
}

type outEntry struct {
	tag   uint16
	typ   uint16
	count int
	raw   []byte
}

// EncodeGeoTIFF writes g to w in the format produced by WriteGeoTIFF.
func EncodeGeoTIFF(w io.Writer, g *Grid) error {
	if g.Width <= 0 || g.Height <= 0 || len(g.Data) != g.Width*g.Height {
		return errors.New(errors.ErrCodeInvalidInput, "cannot encode %dx%d grid with %d values", g.Width, g.Height, len(g.Data))
	}
	order := binary.LittleEndian
	bits, format, encode := sampleEncoder(storageType(g), order)
	bps := bits / 8

	rps := min(max(1, 65536/(g.Width*bps)), g.Height)
	var body bytes.Buffer
	var offsets, counts []uint32
	raw := make([]byte, rps*g.Width*bps)
	for start := 0; start < g.Height; start += rps {
		rows := min(rps, g.Height-start)
		chunk := raw[:rows*g.Width*bps]
		for i := range rows * g.Width {
			encode(chunk[i*bps:], g.Data[start*g.Width+i])
		}
		offsets = append(offsets, uint32(8+body.Len()))
		zw := zlib.NewWriter(&body)
		if _, err := zw.Write(chunk); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "compress strip")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "compress strip")
		}
		counts = append(counts, uint32(8+body.Len())-offsets[len(offsets)-1])
		if body.Len()%2 == 1 {
			body.WriteByte(0)
		}
	}

	entries := []outEntry{
		longs(tagImageWidth, uint32(g.Width)),
		longs(tagImageLength, uint32(g.Height)),
		shorts(tagBitsPerSample, uint16(bits)),
		shorts(tagCompression, compressionDeflate),
		shorts(tagPhotometric, 1),
		longs(tagStripOffsets, offsets...),
		shorts(tagSamplesPerPixel, 1),
		longs(tagRowsPerStrip, uint32(rps)),
		longs(tagStripByteCounts, counts...),
		shorts(tagPlanarConfig, 1),
		shorts(tagSampleFormat, uint16(format)),
	}

	gt := g.Transform
	if gt[2] == 0 && gt[4] == 0 {
		entries = append(entries,
			doubles(tagModelPixelScale, gt[1], -gt[5], 0),
			doubles(tagModelTiepoint, 0, 0, 0, gt[0], gt[3], 0))
	} else {
		entries = append(entries, doubles(tagModelTransform,
			gt[1], gt[2], 0, gt[0],
			gt[4], gt[5], 0, gt[3],
			0, 0, 0, 0,
			0, 0, 0, 1))
	}
	if g.CRS != 0 {
		modelType, key := uint16(modelTypeProjected), uint16(keyProjectedCSType)
		if g.CRS.IsGeographic() {
			modelType, key = modelTypeGeographic, keyGeographicType
		}
		entries = append(entries, shorts(tagGeoKeyDirectory,
			1, 1, 0, 3,
			keyModelType, 0, 1, modelType,
			keyRasterType, 0, 1, rasterPixelIsArea,
			key, 0, 1, uint16(g.CRS)))
	}
	if g.HasNoData {
		s := strconv.FormatFloat(g.NoData, 'g', -1, 64)
		if math.IsNaN(g.NoData) {
			s = "nan"
		}
		entries = append(entries, outEntry{tag: tagGDALNoData, typ: dtASCII, count: len(s) + 1, raw: append([]byte(s), 0)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOff := 8 + body.Len()
	extraOff := ifdOff + 2 + 12*len(entries) + 4
	var ifd, extra bytes.Buffer
	var scratch [4]byte
	order.PutUint16(scratch[:2], uint16(len(entries)))
	ifd.Write(scratch[:2])
	for _, e := range entries {
		var field [12]byte
		order.PutUint16(field[0:], e.tag)
		order.PutUint16(field[2:], e.typ)
		order.PutUint32(field[4:], uint32(e.count))
		if len(e.raw) <= 4 {
			copy(field[8:], e.raw)
		} else {
			order.PutUint32(field[8:], uint32(extraOff+extra.Len()))
			extra.Write(e.raw)
			if extra.Len()%2 == 1 {
				extra.WriteByte(0)
			}
		}
		ifd.Write(field[:])
	}
	ifd.Write([]byte{0, 0, 0, 0})

	header := make([]byte, 8)
	copy(header, "II")
	order.PutUint16(header[2:], 42)
	order.PutUint32(header[4:], uint32(ifdOff))

	for _, part := range [][]byte{header, body.Bytes(), ifd.Bytes(), extra.Bytes()} {
		if _, err := w.Write(part); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write GeoTIFF")
		}
	}
	return nil
}

// integerRange gives the representable range of the integer types.
var integerRange = map[DataType][2]float64{
	Byte:   {0, math.MaxUint8},
	UInt16: {0, math.MaxUint16},
	Int16:  {math.MinInt16, math.MaxInt16},
	UInt32: {0, math.MaxUint32},
	Int32:  {math.MinInt32, math.MaxInt32},
}

// storageType picks the on-disk sample type for g.
func storageType(g *Grid) DataType {
	if g.Type.IsFloat() {
		return g.Type
	}
	fits := func(t DataType) bool {
		r := integerRange[t]
		ok := func(v float64) bool { return v == math.Trunc(v) && v >= r[0] && v <= r[1] }
		if g.HasNoData && !ok(g.NoData) {
			return false
		}
		for _, v := range g.Data {
			if !ok(v) {
				return false
			}
		}
		return true
	}
	if _, ok := integerRange[g.Type]; ok && fits(g.Type) {
		return g.Type
	}
	if fits(Int32) {
		return Int32
	}
	return Float64
}

func sampleEncoder(t DataType, order binary.ByteOrder) (bits, format int, encode func([]byte, float64)) {
	switch t {
	case Byte:
		return 8, 1, func(b []byte, v float64) { b[0] = uint8(v) }
	case UInt16:
		return 16, 1, func(b []byte, v float64) { order.PutUint16(b, uint16(v)) }
	case Int16:
		return 16, 2, func(b []byte, v float64) { order.PutUint16(b, uint16(int16(v))) }
	case UInt32:
		return 32, 1, func(b []byte, v float64) { order.PutUint32(b, uint32(v)) }
	case Int32:
		return 32, 2, func(b []byte, v float64) { order.PutUint32(b, uint32(int32(v))) }
	case Float32:
		return 32, 3, func(b []byte, v float64) { order.PutUint32(b, math.Float32bits(float32(v))) }
	}
	return 64, 3, func(b []byte, v float64) { order.PutUint64(b, math.Float64bits(v)) }
}

func shorts(tag uint16, vs ...uint16) outEntry {
	raw := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(raw[2*i:], v)
	}
	return outEntry{tag: tag, typ: dtShort, count: len(vs), raw: raw}
}

func longs(tag uint16, vs ...uint32) outEntry {
	raw := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(raw[4*i:], v)
	}
	return outEntry{tag: tag, typ: dtLong, count: len(vs), raw: raw}
}

func doubles(tag uint16, vs ...float64) outEntry {
	raw := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return outEntry{tag: tag, typ: dtDouble, count: len(vs), raw: raw}
}
