package entity

import "math"

// DepthMap は画素ごとの推定距離（メートル相当）を保持する密な2次元配列です。
// Values[y][x] の順でアクセスします。永続化はせず、シーン構築の間だけ使用します。
type DepthMap struct {
	Values [][]float64
	Min    float64
	Max    float64
}

// Width は先頭行の要素数を返します。
func (d DepthMap) Width() int {
	if len(d.Values) == 0 {
		return 0
	}
	return len(d.Values[0])
}

// Height は行数を返します。
func (d DepthMap) Height() int {
	return len(d.Values)
}

// Flatten は全要素を1次元スライスにコピーして返します。
func (d DepthMap) Flatten() []float64 {
	n := 0
	for _, row := range d.Values {
		n += len(row)
	}
	out := make([]float64, 0, n)
	for _, row := range d.Values {
		out = append(out, row...)
	}
	return out
}

// Resize は双線形補間で width×height の格子に再標本化したDepthMapを返します。
// 画素中心を揃える（align_corners=false 相当）座標変換を使います。
// 同じ形状の場合や空のマップはそのまま返します。
func (d DepthMap) Resize(width, height int) DepthMap {
	sw, sh := d.Width(), d.Height()
	if sw == 0 || sh == 0 || width <= 0 || height <= 0 || (sw == width && sh == height) {
		return d
	}

	xs := make([]axisSample, width)
	for x := range xs {
		xs[x] = newAxisSample(x, width, sw)
	}

	values := make([][]float64, height)
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := range values {
		ys := newAxisSample(y, height, sh)
		top, bottom := d.Values[ys.i0], d.Values[ys.i1]
		row := make([]float64, width)
		for x, s := range xs {
			t := top[s.i0]*(1-s.w) + top[s.i1]*s.w
			b := bottom[s.i0]*(1-s.w) + bottom[s.i1]*s.w
			v := t*(1-ys.w) + b*ys.w
			row[x] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		values[y] = row
	}
	return DepthMap{Values: values, Min: lo, Max: hi}
}

// axisSample は出力座標1つに対応する入力側の2近傍と重みです。
type axisSample struct {
	i0, i1 int
	w      float64
}

func newAxisSample(dst, dstLen, srcLen int) axisSample {
	src := (float64(dst)+0.5)*float64(srcLen)/float64(dstLen) - 0.5
	if src < 0 {
		src = 0
	}
	if limit := float64(srcLen - 1); src > limit {
		src = limit
	}
	i0 := int(src)
	i1 := i0 + 1
	if i1 >= srcLen {
		i1 = srcLen - 1
	}
	return axisSample{i0: i0, i1: i1, w: src - float64(i0)}
}

// ModelImage は推論サービスへ渡す前処理済み画像です。
type ModelImage struct {
	Data        []byte // エンコード済み画像バイト列
	ContentType string // 例: "image/png"
	Width       int
	Height      int
}
