package contour

// Cell corners are numbered counter-clockwise from the bottom left and edges
// from the bottom: e0 bottom, e1 right, e2 top, e3 left.
var segmentTable = [16][][2]int{
	1:  {{3, 0}},
	2:  {{0, 1}},
	3:  {{3, 1}},
	4:  {{1, 2}},
	6:  {{0, 2}},
	7:  {{3, 2}},
	8:  {{2, 3}},
	9:  {{0, 2}},
	11: {{1, 2}},
	12: {{1, 3}},
	13: {{0, 1}},
	14: {{3, 0}},
}

// Loops traces every closed iso-line at threshold t. The field is padded
// with a ring of zeros one step outside the lattice, so lines that would run
// off the grid are closed along its border.
func (g *Grid) Loops(t float64) []Polygon {
	nx, ny := len(g.X), len(g.Y)
	if nx < 2 || ny < 2 {
		return nil
	}
	w, h := nx+2, ny+2
	px := make([]float64, w)
	py := make([]float64, h)
	dx := g.X[1] - g.X[0]
	dy := g.Y[1] - g.Y[0]
	px[0], px[w-1] = g.X[0]-dx, g.X[nx-1]+dx
	py[0], py[h-1] = g.Y[0]-dy, g.Y[ny-1]+dy
	copy(px[1:], g.X)
	copy(py[1:], g.Y)
	z := func(i, j int) float64 {
		if i == 0 || j == 0 || i == w-1 || j == h-1 {
			return 0
		}
		return g.Z[j-1][i-1]
	}

	type point struct{ x, y float64 }
	cross := map[int]point{}
	// Horizontal edge (i,j)-(i+1,j) has key 2*(j*w+i), vertical edge
	// (i,j)-(i,j+1) the next odd key.
	edge := func(i, j, e int) int {
		var key, i1, j1 int
		switch e {
		case 0:
			key, i1, j1 = 2*(j*w+i), i+1, j
		case 1:
			i++
			key, i1, j1 = 2*(j*w+i)+1, i, j+1
		case 2:
			j++
			key, i1, j1 = 2*(j*w+i), i+1, j
		case 3:
			key, i1, j1 = 2*(j*w+i)+1, i, j+1
		}
		if _, ok := cross[key]; !ok {
			za, zb := z(i, j), z(i1, j1)
			f := (t - za) / (zb - za)
			cross[key] = point{px[i] + f*(px[i1]-px[i]), py[j] + f*(py[j1]-py[j])}
		}
		return key
	}

	var segs [][2]int
	for j := 0; j < h-1; j++ {
		for i := 0; i < w-1; i++ {
			v0, v1, v2, v3 := z(i, j), z(i+1, j), z(i+1, j+1), z(i, j+1)
			c := 0
			if v0 >= t {
				c |= 1
			}
			if v1 >= t {
				c |= 2
			}
			if v2 >= t {
				c |= 4
			}
			if v3 >= t {
				c |= 8
			}
			pairs := segmentTable[c]
			if c == 5 || c == 10 {
				center := (v0+v1+v2+v3)/4 >= t
				if (c == 5) != center {
					pairs = [][2]int{{3, 0}, {1, 2}}
				} else {
					pairs = [][2]int{{0, 1}, {2, 3}}
				}
			}
			for _, p := range pairs {
				segs = append(segs, [2]int{edge(i, j, p[0]), edge(i, j, p[1])})
			}
		}
	}

	byEdge := make(map[int][]int, len(cross))
	for s, seg := range segs {
		byEdge[seg[0]] = append(byEdge[seg[0]], s)
		byEdge[seg[1]] = append(byEdge[seg[1]], s)
	}
	used := make([]bool, len(segs))
	var loops []Polygon
	for s := range segs {
		if used[s] {
			continue
		}
		used[s] = true
		start, cur := segs[s][0], segs[s][1]
		keys := []int{start}
		closed := false
		for {
			if cur == start {
				closed = true
				break
			}
			keys = append(keys, cur)
			next := -1
			for _, cand := range byEdge[cur] {
				if !used[cand] {
					next = cand
					break
				}
			}
			if next < 0 {
				break
			}
			used[next] = true
			if segs[next][0] == cur {
				cur = segs[next][1]
			} else {
				cur = segs[next][0]
			}
		}
		if !closed {
			continue
		}
		p := Polygon{X: make([]float64, len(keys)), Y: make([]float64, len(keys))}
		for n, k := range keys {
			p.X[n], p.Y[n] = cross[k].x, cross[k].y
		}
		loops = append(loops, p)
	}
	return loops
}
