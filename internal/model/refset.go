package model

// RefSet は挿入順を保持する外部参照キーの集合。
// 「リストだが意味的には集合（重複禁止）」というフィールドを
// アドホックな重複チェックではなく構造として表現する。
type RefSet []string

// Contains はrefが集合に含まれているかを返す。
func (s RefSet) Contains(ref string) bool {
	for _, r := range s {
		if r == ref {
			return true
		}
	}
	return false
}

// Add はrefを末尾に追加する。既に含まれている場合は追加せずfalseを返す。
func (s *RefSet) Add(ref string) bool {
	if s.Contains(ref) {
		return false
	}
	*s = append(*s, ref)
	return true
}

// Remove はrefを取り除く。含まれていない場合はfalseを返す。
func (s *RefSet) Remove(ref string) bool {
	for i, r := range *s {
		if r == ref {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}
