package device

// Room identifiers used by the built-in catalogue.
const (
	RoomBedroom    = "yatak_odasi"
	RoomLivingRoom = "salon"
	RoomGarage     = "garaj"
	RoomBathroom   = "banyo"
	RoomEntrance   = "giris"
)

// Gas severity labels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Face detection values.
const (
	FaceDetected    = "detected"
	FaceNotDetected = "not_detected"
)

// Type names shared by the two catalogues.
const (
	TypeLight       = "light"
	TypeCurtain     = "curtain"
	TypeDoor        = "door"
	TypeTemperature = "temperature"
	TypeGas         = "gas"
	TypeFaceID      = "face_id"
)

var allRooms = []string{RoomBedroom, RoomLivingRoom, RoomGarage, RoomBathroom, RoomEntrance}

// SensorSpecs returns the built-in sensor catalogue.
func SensorSpecs() []Spec {
	return []Spec{
		{Name: TypeLight, Kind: KindBinary, AllowedValues: []string{"on", "off"}, Rooms: allRooms},
		{Name: TypeCurtain, Kind: KindBinary, AllowedValues: []string{"open", "close"}, Rooms: []string{RoomBedroom}},
		{Name: TypeDoor, Kind: KindBinary, AllowedValues: []string{"on", "off"}, Rooms: []string{RoomGarage, RoomEntrance}},
		{Name: TypeTemperature, Kind: KindFloat, Range: &Range{Min: 0, Max: 125}, Rooms: []string{RoomLivingRoom}, Unit: "°C"},
		{
			Name: TypeGas,
			Kind: KindInteger,
			Bands: []SeverityBand{
				{Label: SeverityLow, Min: 0, Max: 300},
				{Label: SeverityMedium, Min: 301, Max: 700},
				{Label: SeverityHigh, Min: 701, Max: NoUpperBound},
			},
			Rooms: []string{RoomLivingRoom},
			Unit:  "ppm",
		},
		{Name: TypeFaceID, Kind: KindBinary, AllowedValues: []string{FaceDetected, FaceNotDetected}, Rooms: []string{RoomEntrance}},
	}
}

// CommandSpecs returns the built-in command catalogue.
func CommandSpecs() []Spec {
	return []Spec{
		{Name: TypeLight, Kind: KindBinary, AllowedValues: []string{"on", "off"}, Rooms: allRooms},
		{Name: TypeCurtain, Kind: KindBinary, AllowedValues: []string{"on", "off"}, Rooms: []string{RoomBedroom}},
		{Name: TypeDoor, Kind: KindBinary, AllowedValues: []string{"on", "off"}, Rooms: []string{RoomGarage}},
		{Name: TypeTemperature, Kind: KindFloat, Range: &Range{Min: 16, Max: 30}, Rooms: []string{RoomBedroom, RoomLivingRoom}, Unit: "°C"},
	}
}

// SensorRegistry builds the sensor registry from the built-in catalogue.
func SensorRegistry() *Registry {
	return MustRegistry(DirectionSensor, SensorSpecs())
}

// CommandRegistry builds the command registry from the built-in catalogue.
func CommandRegistry() *Registry {
	return MustRegistry(DirectionCommand, CommandSpecs())
}
