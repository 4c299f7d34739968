package form

import (
	"context"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/model"
)

// OriginalImage is the Selection.Info key holding the picked image bytes.
const OriginalImage = "original"

// Selection is what an ImagePicker hands back. Info may carry several
// representations of the picked media; the controller only reads
// Info[OriginalImage], which must be a []byte when Cancelled is false.
type Selection struct {
	Cancelled bool
	Info      map[string]any
}

// ImagePicker lets the user choose a photo from some image source.
type ImagePicker interface {
	Pick(ctx context.Context) (Selection, error)
}

// ImagePickerFunc adapts a plain function to ImagePicker.
type ImagePickerFunc func(ctx context.Context) (Selection, error)

func (f ImagePickerFunc) Pick(ctx context.Context) (Selection, error) { return f(ctx) }

// UploadPicker is the picker for a photo the client has already sent. An
// empty upload means the user cancelled. Bytes that are not a PNG, JPEG or
// GIF image are the client's mistake and fail with apperror.ErrValidation,
// so the picker never hands the controller a selection it would reject.
func UploadPicker(data []byte) ImagePicker {
	return ImagePickerFunc(func(context.Context) (Selection, error) {
		if len(data) == 0 {
			return Selection{Cancelled: true}, nil
		}
		if err := checkImage(data); err != nil {
			return Selection{}, apperror.ValidationFailed(model.KeyPhoto, err.Error())
		}
		return Selection{Info: map[string]any{OriginalImage: data}}, nil
	})
}

// Destination receives the outcome of a form: either one committed meal or
// a dismissal. It is typically the meal list that opened the form.
type Destination interface {
	Commit(ctx context.Context, meal *model.Meal) error
	Dismiss(ctx context.Context)
}
