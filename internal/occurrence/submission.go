package occurrence

import (
	"strings"

	"github.com/svca/portal/internal/apperr"
)

// AddressParts são os campos estruturados do formulário de registro.
type AddressParts struct {
	Street       string `json:"rua"`
	Number       string `json:"numero"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade"`
	State        string `json:"estado"`
	Postcode     string `json:"cep"`
}

// ComposeAddress junta as partes não vazias separadas por vírgula.
func ComposeAddress(p AddressParts) string {
	parts := []string{p.Street, p.Number, p.Neighborhood, p.City, p.State, p.Postcode}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ", ")
}

// Image é um arquivo anexado ao registro, na ordem de envio.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Submission é o formulário de nova ocorrência.
type Submission struct {
	Title       string
	Address     string
	Description string
	Latitude    *float64
	Longitude   *float64
	Images      []Image
}

// MsgSubmissionRequired é exibida quando faltam campos ou coordenadas.
const MsgSubmissionRequired = "Título, Endereço completo, Descrição e Coordenadas são obrigatórios. Preencha o endereço e aguarde as coordenadas serem geradas."

// Validate impede o envio antes da geocodificação.
func (s Submission) Validate() error {
	var fields []apperr.FieldError
	if strings.TrimSpace(s.Title) == "" {
		fields = append(fields, apperr.FieldError{Field: "titulo", Message: "obrigatório"})
	}
	if strings.TrimSpace(s.Address) == "" {
		fields = append(fields, apperr.FieldError{Field: "endereco", Message: "obrigatório"})
	}
	if strings.TrimSpace(s.Description) == "" {
		fields = append(fields, apperr.FieldError{Field: "descricao", Message: "obrigatório"})
	}
	if s.Latitude == nil || s.Longitude == nil {
		fields = append(fields, apperr.FieldError{Field: "coordenadas", Message: "obrigatório"})
	}
	if len(fields) > 0 {
		return apperr.Validation(MsgSubmissionRequired, fields...)
	}
	if *s.Latitude < -90 || *s.Latitude > 90 || *s.Longitude < -180 || *s.Longitude > 180 {
		return apperr.Validation("Coordenadas inválidas.", apperr.FieldError{Field: "coordenadas", Message: "fora do intervalo"})
	}
	for _, img := range s.Images {
		if len(img.Data) == 0 {
			return apperr.Validation("Imagem vazia: "+img.Name+".", apperr.FieldError{Field: "imagens", Message: "vazia"})
		}
	}
	return nil
}
