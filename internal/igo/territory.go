package igo

// computeTerritory flood-fills every maximal region of empty-or-dead-marked
// points and assigns it to a color when the region borders exactly one
// living color. Regions bordering both colors, or neither (the board is
// empty), score no territory. Dead-marked stones are treated as empty for
// the purpose of this scan, matching the scoring-phase convention that
// marking a group dead removes it before territory is counted.
func (g *Game) computeTerritory() {
	size := g.board.Size
	visited := make([][]bool, size)
	for i := range visited {
		visited[i] = make([]bool, size)
	}

	isEmpty := func(c Coords) bool {
		p := g.board.at(c)
		return p.Color == None || p.MarkedDead
	}

	territory := map[Color]int{}

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			start := Coords{i, j}
			if visited[i][j] || !isEmpty(start) {
				continue
			}

			var region []Coords
			borders := map[Color]bool{}
			stack := []Coords{start}
			visited[i][j] = true

			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				region = append(region, cur)

				for _, n := range g.board.neighbors(cur) {
					if isEmpty(n) {
						if !visited[n[0]][n[1]] {
							visited[n[0]][n[1]] = true
							stack = append(stack, n)
						}
					} else {
						borders[g.board.at(n).Color] = true
					}
				}
			}

			owner := None
			if len(borders) == 1 {
				for c := range borders {
					owner = c
				}
			}

			for _, m := range region {
				p := g.board.at(m)
				p.Counted = owner != None
				p.CountsFor = owner
				g.board.set(m, p)
			}
			if owner != None {
				territory[owner] += len(region)
			}
		}
	}

	g.territory = territory
}
