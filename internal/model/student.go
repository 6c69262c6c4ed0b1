package model

// FieldType is the declared value type of a column.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// FieldRole says how the classifier consumes a column.
type FieldRole string

const (
	RoleCategorical FieldRole = "categorical"
	RoleNumeric     FieldRole = "numeric"
)

// Field declares one required student column.
type Field struct {
	Name        string
	Type        FieldType
	Role        FieldRole
	Description string
	Examples    []string
}

// Categorical reports whether the classifier encodes the field as a category.
func (f Field) Categorical() bool {
	return f.Role == RoleCategorical
}

// Student column names.
const (
	ColGender           = "Gender"
	ColChildStatus      = "ChildStatus"
	ColDistanceToSchool = "DistanceToSchool"
	ColBirthOrder       = "BirthOrder"
	ColFinancialStatus  = "FinancialStatus"
	ColResidence        = "Residence"
	ColTransport        = "Transport"
	ColLightingEnergy   = "LightingEnergy"
)

// StudentFields is the required upload schema, in the order the model expects.
var StudentFields = []Field{
	{ColGender, TypeString, RoleCategorical, "MALE or FEMALE", []string{"MALE", "FEMALE"}},
	{ColChildStatus, TypeString, RoleCategorical, "Orphan, Both parents, or One parent", []string{"Orphan", "Both parents", "One parent"}},
	{ColDistanceToSchool, TypeNumber, RoleNumeric, "Numeric value (in kilometers)", []string{"5", "12.5"}},
	{ColBirthOrder, TypeString, RoleCategorical, "Firstborn, Secondborn, Thirdborn, etc.", []string{"Firstborn", "Secondborn", "Thirdborn"}},
	{ColFinancialStatus, TypeString, RoleCategorical, "Poverty, Medium, or Rich", []string{"Poverty", "Medium", "Rich"}},
	{ColResidence, TypeString, RoleCategorical, "House, Apartment, etc.", []string{"House", "Apartment"}},
	{ColTransport, TypeString, RoleCategorical, "Walking, Car, Public Transit, etc.", []string{"Walking", "Car", "Public Transit"}},
	{ColLightingEnergy, TypeString, RoleCategorical, "Electricity, Solar, etc.", []string{"Electricity", "Solar"}},
}

// RequiredColumns returns the names of StudentFields in order.
func RequiredColumns() []string {
	names := make([]string, len(StudentFields))
	for i, f := range StudentFields {
		names[i] = f.Name
	}
	return names
}

// CategoricalColumns returns the names of the categorical StudentFields.
func CategoricalColumns() []string {
	var names []string
	for _, f := range StudentFields {
		if f.Categorical() {
			names = append(names, f.Name)
		}
	}
	return names
}
