package diagnosis

const noExplanation = "No explanation available"

var explanations = map[string]string{
	"AMD": "Age-related macular degeneration (AMD) damages the macula, the central part of the retina " +
		"that gives sharp detailed vision. It blurs or removes central vision and makes reading or " +
		"recognising faces hard. It is most common after the age of 50.",
	"CNV": "Choroidal neovascularization (CNV) is the growth of abnormal blood vessels in the choroid, " +
		"the layer behind the retina. The vessels leak fluid and blood into the retina and cause vision " +
		"loss. It is often associated with age-related macular degeneration.",
	"CSR": "Central serous retinopathy (CSR) is a build-up of fluid under the retina that blurs or " +
		"distorts central vision. It is linked to stress, high cortisol levels and steroid use.",
	"DME": "Diabetic macular edema (DME) is swelling of the macula caused by fluid leaking from damaged " +
		"vessels in people with diabetes. It blurs central vision and is a leading cause of vision loss " +
		"in working-age adults with diabetes.",
	"DR": "Diabetic retinopathy (DR) is damage to the blood vessels of the retina caused by diabetes. " +
		"Left untreated it can lead to vision loss and blindness.",
	"DRUSEN": "Drusen are small yellow deposits of lipids and proteins under the retina. Small hard " +
		"drusen are common with age; large soft drusen in the macula can be an early sign of AMD.",
	"MH": "A macular hole (MH) is a full-thickness break in the centre of the retina. It causes a blind " +
		"spot or wavy central vision and can often be closed surgically.",
	Normal: "No abnormalities detected: Healthy retinal scan.",
}

// Explain returns the patient-facing description of a label.
func Explain(class string) string {
	if e, ok := explanations[class]; ok {
		return e
	}
	return noExplanation
}
