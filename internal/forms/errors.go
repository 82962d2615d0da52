package forms

import "fmt"

// ValidationError holds the first failing rule's message for each field
type ValidationError struct {
	Fields map[string]string
	order  []string
}

func (e *ValidationError) Error() string {
	return e.First()
}

// First returns the message of the first failing field
func (e *ValidationError) First() string {
	if len(e.order) == 0 {
		return "Data tidak valid"
	}
	return e.Fields[e.order[0]]
}

// Field returns the message for field, or "" if it passed
func (e *ValidationError) Field(field string) string {
	return e.Fields[field]
}

// FieldNames lists failing fields in form order
func (e *ValidationError) FieldNames() []string {
	return append([]string(nil), e.order...)
}

func message(field, tag, param string) string {
	switch tag {
	case "email":
		return "Email tidak valid"
	case "hasupper":
		return "Harus mengandung huruf kapital"
	case "hasdigit":
		return "Harus mengandung angka"
	case "eqfield":
		return "Password tidak cocok"
	}

	switch field {
	case "email":
		if tag == "max" {
			return fmt.Sprintf("Email maksimal %s karakter", param)
		}
		return "Email tidak valid"
	case "password":
		if tag == "required" {
			return "Password wajib diisi"
		}
		return fmt.Sprintf("Password minimal %s karakter", param)
	case "full_name":
		if tag == "max" {
			return fmt.Sprintf("Nama maksimal %s karakter", param)
		}
		return fmt.Sprintf("Nama minimal %s karakter", param)
	}

	return fmt.Sprintf("%s tidak valid", field)
}
