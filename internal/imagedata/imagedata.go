package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload возвращается, когда строка не является корректным
// data-URL с base64-телом. Обработчик по этой ошибке отдает 422, не трогая
// ни хранилище, ни базу.
var ErrMalformedPayload = errors.New("malformed image payload")

// defaultSubtype используется, если в префиксе не объявлен подтип изображения
// или объявленный подтип не распознан
const defaultSubtype = "jpg"

// allowedSubtypes - закрытое множество подтипов, которые реально присылает
// детектор. Подтип попадает в имя файла артефакта, поэтому произвольная
// строка из запроса (в том числе с разделителями пути) сюда не проходит.
var allowedSubtypes = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// Image - декодированный скриншот инцидента
type Image struct {
	Subtype string // расширение файла без точки: png, jpeg, jpg...
	Bytes   []byte
}

// Parse разбирает строку вида "data:image/png;base64,<payload>".
// Подтип берется из префикса и проверяется по закрытому множеству; если он
// отсутствует или не распознан, подставляется jpg. Некорректный base64
// делает весь запрос невалидным.
func Parse(raw string) (*Image, error) {
	parts := strings.SplitN(raw, ";base64,", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: missing base64 separator", ErrMalformedPayload)
	}

	subtype := defaultSubtype
	if idx := strings.Index(parts[0], "image/"); idx != -1 {
		if s := strings.ToLower(parts[0][idx+len("image/"):]); allowedSubtypes[s] {
			subtype = s
		}
	}

	body, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 body: %v", ErrMalformedPayload, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty image body", ErrMalformedPayload)
	}

	return &Image{Subtype: subtype, Bytes: body}, nil
}
