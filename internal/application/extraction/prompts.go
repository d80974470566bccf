package extraction

const extractionFields = `documentType, externalId, fullName, firstName, middleName, lastName, sex, dateOfBirth, placeOfBirth, address, precinctNumber, voterIdNumber, otherNotes`

const strictPrompt = `You are reading a Philippine identity document image (PSA birth certificate, voter certification or national ID).
Extract these fields: ` + extractionFields + `.
Rules:
- documentType is the document title as printed, e.g. "Certificate of Live Birth" or "Voter's Certification".
- externalId is the registry, PCN or certificate number if one is printed.
- sex must be exactly "Male", "Female" or "" when not clearly marked.
- dateOfBirth must be YYYY-MM-DD.
- Use "" for anything you cannot read. Never guess.`

const relaxedPrompt = `Read the identity document in the image and answer with ONLY this JSON object, filling every value with a string ("" when unknown):
{
  "documentType": "",
  "externalId": "",
  "fullName": "",
  "firstName": "",
  "middleName": "",
  "lastName": "",
  "sex": "",
  "dateOfBirth": "YYYY-MM-DD",
  "placeOfBirth": "",
  "address": "",
  "precinctNumber": "",
  "voterIdNumber": "",
  "otherNotes": ""
}
sex is "Male", "Female" or "". Do not add commentary or code fences.`

const structuredCodePrompt = `Look only for a QR code or other scannable code in the image. Do not read any other text.
If there is none, answer {"found": false, "raw": ""}.
If there is one, decode it: put the exact decoded text in "raw" and, if the decoded text is JSON, the same object in "structured".`

const sexReferencePrompt = `The first images are reference examples of how the sex field looks when "Male" is marked and when "Female" is marked.
The last image is the document to read. Which sex is marked on it? Answer {"sex": "Male"}, {"sex": "Female"} or {"sex": ""} if unclear.`

const sexFreeformPrompt = `Read the sex field of this identity document. Answer {"sex": "Male"}, {"sex": "Female"} or {"sex": ""} if it is not clearly marked.`

const sexLabelPrompt = `On this form the sex options are numbered: option 1 is Male and option 2 is Female.
Which option is ticked, shaded or written? Answer {"label": "1"}, {"label": "2"} or {"label": "none"}.`

const sexEnumPrompt = `Classify the sex recorded on this identity document.`

const sexGeometryPrompt = `The sex field has two options side by side. Look at which one carries a mark (tick, cross, shading or handwriting).
Answer {"position": "left"}, {"position": "right"} or {"position": "none"}.`
