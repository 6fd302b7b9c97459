package resource

// Permissions minted by the backend for the barbershop domains. The gateway
// treats them as opaque strings; unknown ones simply never match.
const (
	PermReadClients   = "READ_CLIENTS"
	PermCreateClients = "CREATE_CLIENTS"
	PermUpdateClients = "UPDATE_CLIENTS"
	PermDeleteClients = "DELETE_CLIENTS"

	PermReadProfessionals   = "READ_PROFESSIONALS"
	PermCreateProfessionals = "CREATE_PROFESSIONALS"
	PermUpdateProfessionals = "UPDATE_PROFESSIONALS"
	PermDeleteProfessionals = "DELETE_PROFESSIONALS"

	PermReadCategories   = "READ_CATEGORIES"
	PermCreateCategories = "CREATE_CATEGORIES"
	PermUpdateCategories = "UPDATE_CATEGORIES"
	PermDeleteCategories = "DELETE_CATEGORIES"

	PermReadServices   = "READ_SERVICES"
	PermCreateServices = "CREATE_SERVICES"
	PermUpdateServices = "UPDATE_SERVICES"
	PermDeleteServices = "DELETE_SERVICES"

	PermReadBookings   = "READ_BOOKINGS"
	PermCreateBookings = "CREATE_BOOKINGS"
	PermUpdateBookings = "UPDATE_BOOKINGS"
	PermDeleteBookings = "DELETE_BOOKINGS"
)

// BookingStatuses a booking may carry.
var BookingStatuses = []string{"PENDING", "CONFIRMED", "CANCELLED", "COMPLETED"}

// Catalog returns the built-in resource descriptors for the five CRUD
// domains. Services, professionals and categories are readable on the public
// marketing site without a session.
func Catalog() []*Resource {
	return []*Resource{
		{
			Name:        "clients",
			BackendPath: "/clients",
			Permissions: map[string]string{
				ActionRead:   PermReadClients,
				ActionCreate: PermCreateClients,
				ActionUpdate: PermUpdateClients,
				ActionDelete: PermDeleteClients,
			},
			Fields: []Field{
				{Name: "name", Type: "string", Required: true},
				{Name: "last_name", Type: "string"},
				{Name: "email", Type: "string"},
				{Name: "phone", Type: "string"},
				{Name: "notes", Type: "string"},
			},
			Rules: []Rule{
				{Type: "field", Field: "name", Operator: "min_length", Value: float64(2),
					Message: "Name must be at least 2 characters"},
				{Type: "field", Field: "email", Operator: "pattern", Value: `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
					Message: "Email must be a valid address"},
			},
		},
		{
			Name:        "professionals",
			BackendPath: "/professionals",
			Public:      true,
			Permissions: map[string]string{
				ActionRead:   PermReadProfessionals,
				ActionCreate: PermCreateProfessionals,
				ActionUpdate: PermUpdateProfessionals,
				ActionDelete: PermDeleteProfessionals,
			},
			Fields: []Field{
				{Name: "name", Type: "string", Required: true},
				{Name: "last_name", Type: "string"},
				{Name: "specialty", Type: "string"},
				{Name: "photo_url", Type: "string"},
				{Name: "bio", Type: "string"},
				{Name: "active", Type: "boolean"},
			},
		},
		{
			Name:        "categories",
			BackendPath: "/categories",
			Public:      true,
			Permissions: map[string]string{
				ActionRead:   PermReadCategories,
				ActionCreate: PermCreateCategories,
				ActionUpdate: PermUpdateCategories,
				ActionDelete: PermDeleteCategories,
			},
			Fields: []Field{
				{Name: "name", Type: "string", Required: true},
				{Name: "description", Type: "string"},
			},
		},
		{
			Name:        "services",
			BackendPath: "/services",
			Public:      true,
			Permissions: map[string]string{
				ActionRead:   PermReadServices,
				ActionCreate: PermCreateServices,
				ActionUpdate: PermUpdateServices,
				ActionDelete: PermDeleteServices,
			},
			Fields: []Field{
				{Name: "name", Type: "string", Required: true},
				{Name: "description", Type: "string"},
				{Name: "price", Type: "decimal", Required: true},
				{Name: "duration_minutes", Type: "int"},
				{Name: "category_id", Type: "string", Required: true},
				{Name: "image_url", Type: "string"},
				{Name: "active", Type: "boolean"},
			},
			Rules: []Rule{
				{Type: "field", Field: "price", Operator: "min", Value: float64(0),
					Message: "Price must be non-negative"},
				{Type: "field", Field: "duration_minutes", Operator: "min", Value: float64(5),
					Message: "Duration must be at least 5 minutes"},
			},
		},
		{
			Name:        "bookings",
			BackendPath: "/bookings",
			Permissions: map[string]string{
				ActionRead:   PermReadBookings,
				ActionCreate: PermCreateBookings,
				ActionUpdate: PermUpdateBookings,
				ActionDelete: PermDeleteBookings,
			},
			Fields: []Field{
				{Name: "client_id", Type: "string", Required: true},
				{Name: "professional_id", Type: "string", Required: true},
				{Name: "service_id", Type: "string", Required: true},
				{Name: "starts_at", Type: "timestamp", Required: true},
				{Name: "ends_at", Type: "timestamp"},
				{Name: "status", Type: "string", Enum: BookingStatuses},
				{Name: "notes", Type: "string"},
			},
			Rules: []Rule{
				// RFC 3339 timestamps compare lexically.
				{Type: "expression",
					Expression: `record.ends_at != nil && record.starts_at != nil && record.ends_at <= record.starts_at`,
					Message:    "Booking must end after it starts"},
			},
		},
	}
}

// PageRoutes returns the built-in page route→permission table. Paths are the
// Spanish dashboard routes of the original product; /dashboard itself is
// authenticated-only.
func PageRoutes() []RouteRequirement {
	return []RouteRequirement{
		{Path: "/dashboard", Permissions: nil},
		{Path: "/dashboard/clientes", Permissions: []string{PermReadClients}},
		{Path: "/dashboard/profesionales", Permissions: []string{PermReadProfessionals}},
		{Path: "/dashboard/categorias", Permissions: []string{PermReadCategories}},
		{Path: "/dashboard/servicios", Permissions: []string{PermReadServices}},
		{Path: "/dashboard/reservas", Permissions: []string{PermReadBookings}},
	}
}
