package kg

import "strings"

// Category is the knowledge graph a label belongs to.
type Category string

const (
	CategoryNormal      Category = "Normal_KG"
	CategoryMaintenance Category = "Maintenance_KG"
	CategoryCyberattack Category = "Cyberattack_KG"
	CategoryPowerDraw   Category = "PowerDraw_KG"
)

// Classification labels.
const (
	TemperatureNormal    = "Normal_KG:Temperature_Normal"
	PossibleOverheating  = "Maintenance_KG:Possible_Overheating"
	PossibleGlitch       = "Cyberattack_KG:Possible_Glitch/Firmware"
	LikelyGlitch         = "Cyberattack_KG:Likely_Glitch/Firmware"
	SpindleOverheat      = "Maintenance_KG:Spindle_Overheat"
	VibrationNormal      = "Normal_KG:Vibration_Normal"
	PossibleSabotage     = "Cyberattack_KG:Possible_Vibration_Sabotage"
	LikelySabotage       = "Cyberattack_KG:Likely_Vibration_Sabotage"
	PowerNormal          = "Normal_KG:Normal_Power_Consumption"
	PossibleElevatedLoad = "PowerDraw_KG:Possible_Elevated_Load"
	HighPowerConsumption = "PowerDraw_KG:High_Power_Consumption"
	PositionEncoderGood  = "Normal_KG:Position_Encoder_Good"
	MinorPositionDrift   = "Maintenance_KG:Minor_Position_Drift"
	MajorPositionChange  = "Cyberattack_KG:Major_Position_Change"
	ToolChange           = "Maintenance_KG:Tool_Change"
	InspectionFail       = "Normal_KG:Inspection_Fail"
	OperationNormal      = "Normal_KG:Operation_Normal"
)

// CategoryOf returns the category prefix of label and the remainder after the colon.
// A label without a prefix has an empty category.
func CategoryOf(label string) (Category, string) {
	prefix, name, ok := strings.Cut(label, ":")
	if !ok {
		return "", label
	}
	return Category(prefix), name
}
