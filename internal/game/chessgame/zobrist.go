package chessgame

import nchess "github.com/corentings/chess/v2"

// Key layout follows the polyglot book format: 12x64 piece keys, four castle
// keys, eight en passant file keys and one side-to-move key.
const (
	castleKeyOffset    = 768
	enPassantKeyOffset = 772
	turnKeyOffset      = 780
	zobristKeyCount    = 781
)

const zobristSeed = 0x9d39247e33776d41

var zobristTable = newZobristTable(zobristSeed)

// splitmix64 sequence; the table only has to be fixed for the lifetime of
// the process, not compatible with book files.
func newZobristTable(seed uint64) [zobristKeyCount]uint64 {
	var t [zobristKeyCount]uint64
	s := seed
	for i := range t {
		s += 0x9e3779b97f4a7c15
		z := s
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		t[i] = z ^ (z >> 31)
	}
	return t
}

func zobrist(pos *nchess.Position) uint64 {
	if pos == nil {
		return 0
	}
	board := pos.Board()
	return pieceKey(board) ^ castleKey(pos.CastleRights()) ^ enPassantKey(pos, board) ^ turnKey(pos.Turn())
}

func pieceKey(board *nchess.Board) uint64 {
	var key uint64
	for i := 0; i < 64; i++ {
		p := board.Piece(nchess.Square(i))
		if p == nchess.NoPiece {
			continue
		}
		kind := pieceKind(p)
		if kind < 0 {
			continue
		}
		file := i % 8
		rank := i / 8
		key ^= zobristTable[64*kind+8*rank+file]
	}
	return key
}

// pieceKind orders pieces black pawn, white pawn, black knight, ... white king.
func pieceKind(p nchess.Piece) int {
	var base int
	switch p.Type() {
	case nchess.Pawn:
		base = 0
	case nchess.Knight:
		base = 2
	case nchess.Bishop:
		base = 4
	case nchess.Rook:
		base = 6
	case nchess.Queen:
		base = 8
	case nchess.King:
		base = 10
	default:
		return -1
	}
	if p.Color() == nchess.White {
		base++
	}
	return base
}

func castleKey(cr nchess.CastleRights) uint64 {
	var key uint64
	if cr.CanCastle(nchess.White, nchess.KingSide) {
		key ^= zobristTable[castleKeyOffset]
	}
	if cr.CanCastle(nchess.White, nchess.QueenSide) {
		key ^= zobristTable[castleKeyOffset+1]
	}
	if cr.CanCastle(nchess.Black, nchess.KingSide) {
		key ^= zobristTable[castleKeyOffset+2]
	}
	if cr.CanCastle(nchess.Black, nchess.QueenSide) {
		key ^= zobristTable[castleKeyOffset+3]
	}
	return key
}

// enPassantKey only counts the square when a pawn of the side to move can
// actually capture onto it.
func enPassantKey(pos *nchess.Position, board *nchess.Board) uint64 {
	sq := pos.EnPassantSquare()
	if sq == nchess.NoSquare {
		return 0
	}
	idx := int(sq)
	file := idx % 8
	rank := idx / 8

	mover := pos.Turn()
	pawnRank := rank - 1
	if mover == nchess.Black {
		pawnRank = rank + 1
	}
	if pawnRank < 0 || pawnRank > 7 {
		return 0
	}

	var flag bool
	for _, f := range []int{file - 1, file + 1} {
		if f < 0 || f > 7 {
			continue
		}
		p := board.Piece(nchess.Square(pawnRank*8 + f))
		if p != nchess.NoPiece && p.Type() == nchess.Pawn && p.Color() == mover {
			flag = true
		}
	}
	if !flag {
		return 0
	}
	return zobristTable[enPassantKeyOffset+file]
}

func turnKey(turn nchess.Color) uint64 {
	if turn == nchess.Black {
		return 0
	}
	return zobristTable[turnKeyOffset]
}
