package extraction

func stringProp() map[string]any {
	return map[string]any{"type": "STRING"}
}

func extractionSchema() map[string]any {
	props := map[string]any{}
	required := []string{
		"documentType", "externalId", "fullName", "firstName", "middleName", "lastName",
		"sex", "dateOfBirth", "placeOfBirth", "address", "precinctNumber", "voterIdNumber", "otherNotes",
	}
	for _, k := range required {
		props[k] = stringProp()
	}
	props["sex"] = map[string]any{"type": "STRING", "enum": []string{"Male", "Female", ""}}
	return map[string]any{
		"type":       "OBJECT",
		"properties": props,
		"required":   required,
	}
}

func structuredCodeSchema() map[string]any {
	subject := map[string]any{}
	for _, k := range []string{"Suffix", "lName", "fName", "mName", "sex", "BF", "DOB", "POB", "PCN"} {
		subject[k] = stringProp()
	}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"found": map[string]any{"type": "BOOLEAN"},
			"raw":   stringProp(),
			"structured": map[string]any{
				"type":     "OBJECT",
				"nullable": true,
				"properties": map[string]any{
					"DateIssued": stringProp(),
					"Issuer":     stringProp(),
					"subject":    map[string]any{"type": "OBJECT", "properties": subject},
					"alg":        stringProp(),
					"signature":  stringProp(),
				},
			},
		},
		"required": []string{"found", "raw"},
	}
}

func sexEnumSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"sex": map[string]any{"type": "STRING", "enum": []string{"Male", "Female", ""}},
		},
		"required": []string{"sex"},
	}
}
