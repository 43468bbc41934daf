package backup

// Service binds a DailyStore to a server root so callers need not
// carry paths around.
type Service struct {
	store      *DailyStore
	serverRoot string
}

// NewService creates a service archiving serverRoot into store.
func NewService(store *DailyStore, serverRoot string) *Service {
	return &Service{store: store, serverRoot: serverRoot}
}

// EnsureDaily creates today's backup if missing. Reports whether a new
// archive was created.
func (s *Service) EnsureDaily() (bool, error) {
	return s.store.EnsureDaily(s.serverRoot)
}

// CreateArchive zips the whole server directory into a temporary file
// and returns its path. The caller removes the file.
func (s *Service) CreateArchive() (string, error) {
	return CreateZip(s.serverRoot)
}
