package vec

// Facing описывает направление взгляда сущности (для рендерера)
type Facing uint8

const (
	FacingDown Facing = iota // По умолчанию смотрит вниз (юг)
	FacingUp
	FacingLeft
	FacingRight
)

// String возвращает строковое представление направления
func (f Facing) String() string {
	switch f {
	case FacingUp:
		return "up"
	case FacingLeft:
		return "left"
	case FacingRight:
		return "right"
	default:
		return "down"
	}
}

// FacingFromVector выбирает направление по доминирующей оси вектора.
// При равенстве осей выбирается вертикаль.
func FacingFromVector(v Vec2Float) Facing {
	ax, ay := v.X, v.Y
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	if ax > ay {
		if v.X > 0 {
			return FacingRight
		}
		return FacingLeft
	}
	if v.Y > 0 {
		return FacingDown
	}
	return FacingUp
}
