package http

const mimeFormURLEncoded = "application/x-www-form-urlencoded"

// Form returns a field of an application/x-www-form-urlencoded body.
func (req *Request) Form(name string) (string, bool) {
	value, found := req.FormValues()[name]
	return value, found
}

// FormValues parses the body once. Other content types and refused bodies
// give an empty view.
func (req *Request) FormValues() map[string]string {
	if req.formParsed {
		return req.form
	}
	req.formParsed = true
	req.form = map[string]string{}

	if mediaType, _ := req.mediaType(); mediaType != mimeFormURLEncoded {
		return req.form
	}

	body, err := req.Body()
	if err != nil {
		return req.form
	}

	req.form = ParseQuery(string(body))
	return req.form
}
