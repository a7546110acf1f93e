package repository

// Factory describes access to different domain repositories.
type Factory interface {
	UnitOfWork
	Orders() OrderRepository
	Notifications() NotificationRepository
	Events() EventRepository
}
