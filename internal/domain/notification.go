package domain

import "errors"

// Notification накапливает ошибки валидации при построении или многополевом
// изменении сущности. Конструкторы добавляют сюда все нарушения сразу, а
// вызывающий код обязан проверить HasErrors и отбросить объект при непустом
// списке. Нарушения инвариантов на уже валидном объекте, напротив,
// возвращаются немедленно обычной ошибкой.
type Notification struct {
	errs []error
}

// NewNotification создаёт пустой накопитель ошибок.
func NewNotification() *Notification {
	return &Notification{}
}

// Add добавляет ошибку; nil игнорируется.
func (n *Notification) Add(err error) {
	if err == nil {
		return
	}
	n.errs = append(n.errs, err)
}

// HasErrors сообщает, были ли зафиксированы нарушения.
func (n *Notification) HasErrors() bool {
	return len(n.errs) > 0
}

// Errors возвращает копию списка накопленных ошибок.
func (n *Notification) Errors() []error {
	out := make([]error, len(n.errs))
	copy(out, n.errs)
	return out
}

// Err объединяет накопленные ошибки в одну; nil, если нарушений нет.
func (n *Notification) Err() error {
	if len(n.errs) == 0 {
		return nil
	}
	return errors.Join(n.errs...)
}
